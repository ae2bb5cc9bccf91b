package telegram

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/supersunho/senseinfo/internal/infrastructure/proxy"
)

// DialFunc matches the dial signature the MTProto transport resolver
// expects.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// newEgressDialer builds a dial function routed through the given egress.
// A nil egress yields a direct dialer.
func newEgressDialer(egress *proxy.Egress) (DialFunc, error) {
	if egress == nil {
		d := &net.Dialer{Timeout: 30 * time.Second}
		return d.DialContext, nil
	}

	switch egress.Kind {
	case proxy.KindSOCKS5:
		return newSOCKS5Dialer(egress)
	case proxy.KindHTTP, proxy.KindHTTPS:
		return newConnectDialer(egress), nil
	default:
		return nil, fmt.Errorf("unsupported egress kind %q", egress.Kind)
	}
}

// newSOCKS5Dialer routes through a SOCKS5 proxy
func newSOCKS5Dialer(egress *proxy.Egress) (DialFunc, error) {
	var auth *xproxy.Auth
	if egress.Username != "" {
		auth = &xproxy.Auth{
			User:     egress.Username,
			Password: egress.Password,
		}
	}

	forward := &net.Dialer{Timeout: 30 * time.Second}
	dialer, err := xproxy.SOCKS5("tcp", egress.Addr(), auth, forward)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer for %s: %w", egress, err)
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(xproxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}, nil
}

// newConnectDialer routes through an HTTP proxy via the CONNECT method
func newConnectDialer(egress *proxy.Egress) DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		d := &net.Dialer{Timeout: 30 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", egress.Addr())
		if err != nil {
			return nil, fmt.Errorf("dial proxy %s: %w", egress, err)
		}

		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}

		req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", addr, addr)
		if egress.Username != "" {
			cred := base64.StdEncoding.EncodeToString(
				[]byte(egress.Username + ":" + egress.Password))
			req += "Proxy-Authorization: Basic " + cred + "\r\n"
		}
		req += "\r\n"

		if _, err := conn.Write([]byte(req)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write CONNECT to %s: %w", egress, err)
		}

		resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read CONNECT response from %s: %w", egress, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			conn.Close()
			return nil, fmt.Errorf("proxy %s refused CONNECT: %s", egress, resp.Status)
		}

		_ = conn.SetDeadline(time.Time{})
		return conn, nil
	}
}
