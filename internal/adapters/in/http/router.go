package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"orderadmin/internal/core/ports"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const defaultBodyLimit = "16K"

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	AllowedOrigins []string
	// RateLimitMaxRequests per RateLimitWindow and client IP; zero disables limiting.
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	BodyLimit            string
}

// NewRouter builds the echo instance serving s.
func NewRouter(cfg RouterConfig, s *Server, sink ports.MetricsSink, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewErrorHandler(logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(metricsMiddleware(sink))
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		Skipper:               isSwaggerRoute,
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderXRequestID},
		MaxAge:        int((10 * time.Minute).Seconds()),
	}))

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}
	e.Use(middleware.BodyLimit(bodyLimit))

	if cfg.RateLimitMaxRequests > 0 && cfg.RateLimitWindow > 0 {
		e.Use(rateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow))
	}

	RegisterHandlers(e, s)
	return e
}

func rateLimiter(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(maxRequests) / window.Seconds()),
		Burst:     maxRequests,
		ExpiresIn: window,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		Store: store,
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Limit: %d requests per %s", maxRequests, window))
		},
	})
}

// metricsMiddleware reports every request under its route template, so /orders/:id
// stays a single series.
func metricsMiddleware(sink ports.MetricsSink) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil && !c.Response().Committed {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			sink.RecordHTTPRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return nil
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "http_access")

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = slog.LevelError
			case v.Status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Float64("latency_ms", float64(v.Latency)/float64(time.Millisecond)),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("correlation_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			logger.LogAttrs(c.Request().Context(), level, "Request handled", attrs...)
			return nil
		},
	})
}
