package config

import "go.uber.org/fx"

// Module provides configuration for fx DI
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Result exposes the loaded config and its sections as separate dependencies
type Result struct {
	fx.Out

	Config    *Config
	Service   *ServiceConfig
	Database  *DatabaseConfig
	Telegram  *TelegramConfig
	RateLimit *RateLimitConfig
	Monitor   *MonitorConfig
	Proxy     *ProxyConfig
	Kafka     *KafkaConfig
	Logging   *LoggingConfig
}

// NewConfig loads configuration and fans out the sections
func NewConfig() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:    cfg,
		Service:   &cfg.Service,
		Database:  &cfg.Database,
		Telegram:  &cfg.Telegram,
		RateLimit: &cfg.RateLimit,
		Monitor:   &cfg.Monitor,
		Proxy:     &cfg.Proxy,
		Kafka:     &cfg.Kafka,
		Logging:   &cfg.Logging,
	}, nil
}
