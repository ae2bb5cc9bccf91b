package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "senseinfo" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "senseinfo")
	}
	if cfg.RateLimit.MaxRequests != 30 {
		t.Errorf("RateLimit.MaxRequests = %d, want 30", cfg.RateLimit.MaxRequests)
	}
	if cfg.RateLimit.Window != 60*time.Second {
		t.Errorf("RateLimit.Window = %v, want 60s", cfg.RateLimit.Window)
	}
	if cfg.Monitor.PollInterval != 5*time.Second {
		t.Errorf("Monitor.PollInterval = %v, want 5s", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.MaxChannelsPerAccount != 500 {
		t.Errorf("Monitor.MaxChannelsPerAccount = %d, want 500", cfg.Monitor.MaxChannelsPerAccount)
	}
	if cfg.Monitor.MaxKeywordsPerChannel != 100 {
		t.Errorf("Monitor.MaxKeywordsPerChannel = %d, want 100", cfg.Monitor.MaxKeywordsPerChannel)
	}
	if cfg.Kafka.Enabled() {
		t.Error("Kafka.Enabled() = true with no brokers configured")
	}
}

func TestLoadMissingAPICredentials(t *testing.T) {
	t.Setenv("TELEGRAM_API_ID", "")
	t.Setenv("TELEGRAM_API_HASH", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error when TELEGRAM_API_ID is missing")
	}

	t.Setenv("TELEGRAM_API_ID", "12345")
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error when TELEGRAM_API_HASH is missing")
	}
}

func TestLoadProxyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "socks5://h1:1080\n\n# backup pool\nhttp://h2:8080  \n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")
	t.Setenv("PROXY_LIST", "socks5://h0:1080")
	t.Setenv("PROXY_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"socks5://h0:1080", "socks5://h1:1080", "http://h2:8080"}
	if len(cfg.Proxy.List) != len(want) {
		t.Fatalf("Proxy.List = %v, want %v", cfg.Proxy.List, want)
	}
	for i := range want {
		if cfg.Proxy.List[i] != want[i] {
			t.Errorf("Proxy.List[%d] = %q, want %q", i, cfg.Proxy.List[i], want[i])
		}
	}
}

func TestLoadProxyFileMissing(t *testing.T) {
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")
	t.Setenv("PROXY_FILE", filepath.Join(t.TempDir(), "absent.txt"))

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for unreadable PROXY_FILE")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList("socks5://h1:1080, http://h2:8080 ,")
	if len(got) != 2 {
		t.Fatalf("splitList returned %d entries, want 2: %v", len(got), got)
	}
	if got[0] != "socks5://h1:1080" || got[1] != "http://h2:8080" {
		t.Errorf("splitList entries = %v", got)
	}

	if splitList("") != nil {
		t.Error("splitList(\"\") should return nil")
	}
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5432", User: "app", Password: "secret",
		DBName: "senseinfo", SSLMode: "disable",
	}
	want := "host=db port=5432 user=app password=secret dbname=senseinfo sslmode=disable"
	if got := c.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestValidateRateLimitBounds(t *testing.T) {
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for zero RATE_LIMIT_MAX_REQUESTS")
	}
}
