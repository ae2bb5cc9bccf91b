package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	accountdeps "github.com/supersunho/senseinfo/internal/domain/account/deps"
	"github.com/supersunho/senseinfo/internal/domain/monitor/usecase/business"
	"github.com/supersunho/senseinfo/pkg/httputil"
)

const statusTimeout = 5 * time.Second

// Status values reported by the system status endpoint
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// ConnectionCounter reports the number of open platform connections
type ConnectionCounter interface {
	ActiveCount() int
}

// ForwarderHealth reports whether the forwarding transport is usable
type ForwarderHealth interface {
	Healthy() bool
	Destination() string
}

// ComponentStatus is one component's health in the status response
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// SystemStatusResponse is the aggregate service status
type SystemStatusResponse struct {
	Status                string            `json:"status"`
	Timestamp             time.Time         `json:"timestamp"`
	AccountsTotal         int64             `json:"accounts_total"`
	AccountsAuthenticated int64             `json:"accounts_authenticated"`
	ActiveConnections     int               `json:"active_connections"`
	RunningProcessors     int               `json:"running_processors"`
	ForwardDestination    string            `json:"forward_destination"`
	Components            []ComponentStatus `json:"components"`
}

// SystemHandler handles service health and status requests
type SystemHandler struct {
	db        *gorm.DB
	accounts  accountdeps.AccountRepository
	conns     ConnectionCounter
	registry  *business.Registry
	forwarder ForwarderHealth
	logger    zerolog.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(
	db *gorm.DB,
	accounts accountdeps.AccountRepository,
	conns ConnectionCounter,
	registry *business.Registry,
	forwarder ForwarderHealth,
	logger zerolog.Logger,
) *SystemHandler {
	return &SystemHandler{
		db:        db,
		accounts:  accounts,
		conns:     conns,
		registry:  registry,
		forwarder: forwarder,
		logger:    logger.With().Str("handler", "system").Logger(),
	}
}

// Health handles GET /health. Liveness only: the process is up and
// serving requests.
func (h *SystemHandler) Health(ctx *fasthttp.RequestCtx) {
	httputil.WriteResponse(ctx, map[string]string{"status": "ok"})
}

// Status handles GET /api/v1/system/status
func (h *SystemHandler) Status(ctx *fasthttp.RequestCtx) {
	checkCtx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	resp := SystemStatusResponse{
		Timestamp:          time.Now().UTC(),
		ActiveConnections:  h.conns.ActiveCount(),
		RunningProcessors:  h.registry.RunningCount(),
		ForwardDestination: h.forwarder.Destination(),
	}

	dbHealthy := true
	dbMsg := ""
	total, authenticated, err := h.accounts.Count(checkCtx)
	if err == nil {
		err = h.pingDatabase(checkCtx)
	}
	if err != nil {
		dbHealthy = false
		dbMsg = "database unreachable"
		h.logger.Warn().Err(err).Msg("status database check failed")
	} else {
		resp.AccountsTotal = total
		resp.AccountsAuthenticated = authenticated
	}
	resp.Components = append(resp.Components, ComponentStatus{
		Name:    "database",
		Healthy: dbHealthy,
		Message: dbMsg,
	})

	forwarderHealthy := h.forwarder.Healthy()
	forwarderMsg := ""
	if !forwarderHealthy {
		forwarderMsg = "forwarding transport is not healthy"
	}
	resp.Components = append(resp.Components, ComponentStatus{
		Name:    "forwarder",
		Healthy: forwarderHealthy,
		Message: forwarderMsg,
	})

	resp.Status = StatusHealthy
	status := fasthttp.StatusOK
	for _, c := range resp.Components {
		if !c.Healthy {
			resp.Status = StatusDegraded
			status = fasthttp.StatusServiceUnavailable
			break
		}
	}

	httputil.WriteResponseWithStatus(ctx, resp, status)
}

func (h *SystemHandler) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
