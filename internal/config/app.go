package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Leganyst/slot-scheduler/internal/calendar"
)

type AppConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
	// Базовый URL для ссылок publicUrl/editUrl/cancelUrl.
	PublicBaseURL string
	// Зона отображения времени в ответах и ICS.
	DisplayTimeZone string
	LogLevel        string
	// Лимит запросов в секунду на IP; 0: без лимита.
	RateLimitPerSecond float64
}

// LoadAppConfig читает настройки сервера из окружения.
func LoadAppConfig() (*AppConfig, error) {
	v := newViper()
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":50051")
	v.SetDefault("http_request_timeout", "10s")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("display_timezone", "Asia/Tokyo")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit_per_second", 10)

	cfg := &AppConfig{
		HTTPAddr:           v.GetString("http_addr"),
		GRPCAddr:           v.GetString("grpc_addr"),
		RequestTimeout:     v.GetDuration("http_request_timeout"),
		PublicBaseURL:      strings.TrimRight(v.GetString("public_base_url"), "/"),
		DisplayTimeZone:    v.GetString("display_timezone"),
		LogLevel:           v.GetString("log_level"),
		RateLimitPerSecond: v.GetFloat64("rate_limit_per_second"),
	}

	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("invalid app config: HTTP_ADDR must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid app config: HTTP_REQUEST_TIMEOUT must be positive")
	}
	if _, err := calendar.LoadLocation(cfg.DisplayTimeZone); err != nil {
		return nil, fmt.Errorf("invalid app config: DISPLAY_TIMEZONE: %w", err)
	}

	return cfg, nil
}
