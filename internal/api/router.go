package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type ServerConfig struct {
	RequestTimeout     time.Duration
	RateLimitPerSecond float64
}

// NewServer собирает echo с middleware и маршрутами.
func NewServer(h *Handler, cfg ServerConfig, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.RequestTimeout,
		}))
	}
	if cfg.RateLimitPerSecond > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitPerSecond))))
	}

	e.GET("/healthz", h.Health)
	h.Register(e.Group("/api/v1"))
	return e
}

func (h *Handler) Register(g *echo.Group) {
	events := g.Group("/events")
	events.POST("", h.CreateEvent)
	events.GET("/:publicId", h.GetEvent)
	events.PUT("/:publicId", h.UpdateEvent)
	events.GET("/:publicId/edit", h.GetEventForEdit)
	events.GET("/:publicId/audit", h.ListAudit)
	events.GET("/:publicId/calendar.ics", h.ExportICS)
	events.POST("/:publicId/slots", h.CreateSlot)
	events.POST("/:publicId/slots/bulk", h.CreateSlots)

	g.POST("/slots/:slotId/bookings", h.CreateBooking)

	cancel := g.Group("/cancel")
	cancel.GET("/slot/:slotId", h.PreviewSlotCancel)
	cancel.POST("/slot/:slotId", h.CancelSlot)
	cancel.GET("/booking/:bookingId", h.PreviewBookingCancel)
	cancel.POST("/booking/:bookingId", h.CancelBooking)
}

// requestLogger пишет по строке на запрос. Токены из query в лог не попадают.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogRoutePath: true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(context.Background(), level, "http request", attrs...)
			return nil
		},
	})
}
