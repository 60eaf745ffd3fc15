package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mohammad-safakhou/azadi/config"
	"github.com/mohammad-safakhou/azadi/internal/logging"
)

const bodyLimit = "64K"

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Recommender Recommender
	// Ledgers may be nil, in which case forum and reward routes are not mounted.
	Ledgers   Ledgers
	JWTSecret []byte
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// New builds the echo instance with middleware and routes.
func New(cfg config.ServerConfig, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(requestLogger)
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Cookie"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.RequestTimeout,
			// Handlers map deadline errors themselves.
			ErrorHandler: func(err error, _ echo.Context) error { return err },
		}))
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	metrics := promhttp.Handler()
	if deps.Gatherer != nil {
		metrics = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}
	e.GET("/metrics", echo.WrapHandler(metrics))

	var limiter echo.MiddlewareFunc
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS)))
	}

	rh := &RecommendHandler{Recommender: deps.Recommender}
	// The browser client calls /api/...; older callers hit the root paths.
	for _, g := range []*echo.Group{e.Group(""), e.Group("/api")} {
		if limiter != nil {
			rh.Register(g, limiter)
		} else {
			rh.Register(g)
		}
	}

	if deps.Ledgers != nil {
		if len(deps.JWTSecret) == 0 {
			logging.Warn().Msg("server.jwt_secret not configured; forum and reward routes disabled")
		} else {
			lh := &LedgerHandler{Ledgers: deps.Ledgers}
			lh.Register(e.Group("/api"), deps.JWTSecret)
		}
	}
	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.ServerConfig, deps Deps) error {
	e := New(cfg, deps)
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Address).Msg("listening")
		errCh <- e.Start(cfg.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger attaches a request-scoped logger and logs one line per request.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		l := logging.Logger().With().
			Str("request_id", id).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Logger()
		c.SetRequest(req.WithContext(logging.WithContext(req.Context(), l)))

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		l.Info().
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Str("remote_ip", c.RealIP()).
			Msg("request")
		return nil
	}
}

// errorHandler renders every error as {"error": msg}.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "Something went wrong. Try again."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	l := logging.Ctx(c.Request().Context())
	ev := l.Debug()
	switch {
	case code == http.StatusBadGateway || code == http.StatusServiceUnavailable:
		ev = l.Warn()
	case code >= 500:
		ev = l.Error()
	}
	ev.Err(err).Int("status", code).Msg("request failed")

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{"error": msg})
}
