// Package webserver serves the compiled frontend bundle as a single-page
// application and optionally proxies the backend API.
package webserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config configures the server.
type Config struct {
	DistDir   string
	APIOrigin string
	Logger    *slog.Logger
}

// Server is the frontend HTTP server.
type Server struct {
	echo *echo.Echo
	cfg  Config
	log  *slog.Logger
}

// proxiedPrefixes are forwarded to APIOrigin when it is set.
var proxiedPrefixes = []string{"/api", "/ws"}

// NewServer creates a new frontend server.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DistDir == "" {
		cfg.DistDir = "dist"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(contentTypes)

	s := &Server{
		echo: e,
		cfg:  cfg,
		log:  logger.With("component", "webserver"),
	}

	if cfg.APIOrigin != "" {
		target, err := url.Parse(cfg.APIOrigin)
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("invalid API origin %q", cfg.APIOrigin)
		}
		e.Use(middleware.ProxyWithConfig(middleware.ProxyConfig{
			Skipper:  func(c echo.Context) bool { return !isProxied(c.Request().URL.Path) },
			Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: target}}),
		}))
	}

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || isProxied(p)
		},
		Root:  cfg.DistDir,
		Index: "index.html",
		HTML5: true,
	}))

	// Register routes
	e.GET("/health", s.handleHealth)

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	if _, err := os.Stat(filepath.Join(s.cfg.DistDir, "index.html")); err != nil {
		s.log.Warn("index.html not found, SPA routes will 404", "dist", s.cfg.DistDir)
	}
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"proxy":  s.cfg.APIOrigin != "",
	})
}

// contentTypes pins the MIME type of script, stylesheet and JSON assets
// regardless of the host's MIME database.
func contentTypes(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := c.Request().URL.Path
		h := c.Response().Header()
		switch {
		case strings.HasSuffix(p, ".js"):
			h.Set(echo.HeaderContentType, "application/javascript; charset=utf-8")
		case strings.HasSuffix(p, ".css"):
			h.Set(echo.HeaderContentType, "text/css; charset=utf-8")
		case strings.HasSuffix(p, ".json"):
			h.Set(echo.HeaderContentType, "application/json; charset=utf-8")
		}
		return next(c)
	}
}

func isProxied(path string) bool {
	for _, prefix := range proxiedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
