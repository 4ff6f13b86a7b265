package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"thinblog/internal/build"
	"thinblog/internal/counter"
	"thinblog/internal/domain/config"
	"thinblog/internal/domain/slug"
	"thinblog/internal/index"
	"thinblog/internal/logger"
	"thinblog/internal/views"
)

type Server struct {
	cfg config.Config
	log *slog.Logger

	idx     *index.Store
	counter *counter.Store
	metrics *views.Metrics
	echo    *echo.Echo

	// serialises rebuilds; the watcher and Rebuild callers may overlap
	buildMu sync.Mutex

	sseMu     sync.Mutex
	sseConns  map[chan string]struct{}
	watcher   *fsnotify.Watcher
	watchOnce sync.Once
}

func New(cfg config.Config, log *slog.Logger) (*Server, error) {
	log = logger.OrDiscard(log).With("component", "serve")

	st, err := index.Open(index.OpenOptions{Path: cfg.Build.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("serve: failed to open index: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		idx:      st,
		metrics:  views.NewMetrics(),
		sseConns: make(map[chan string]struct{}),
	}

	if cfg.Counter.Enabled {
		s.counter, err = counter.NewStore(cfg.Counter.DatabasePath)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("serve: failed to open counter: %w", err)
		}
	}

	s.echo = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.counter != nil {
		_ = s.counter.Close()
	}
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.Use(middleware.RequestID())
	e.Use(requestContext)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.InfoContext(c.Request().Context(), "request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/dev/events"
		},
	}))
	e.Use(s.redirects)

	resolver := views.NewResolver(s.cfg.Views, nil, views.NewCache(s.cfg.Views.CacheTTL(), nil), s.metrics, s.log)
	views.NewHandler(resolver, s.log).Register(e)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	if s.counter != nil {
		counter.NewHandler(s.counter, s.log).Register(e)
	}

	e.GET("/api/pages", s.handlePages)
	e.GET("/dev/events", s.handleSSE)
	e.Static("/", s.cfg.Build.PublicDir)
	return e
}

// requestContext copies the request id into the request context so slog
// records carry it.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), id)))
		}
		return next(c)
	}
}

var (
	reservedPaths    = []string{"/views", "/metrics", "/count"}
	reservedPrefixes = []string{"/api/", "/dev/", "/counter/"}
)

func isReserved(path string) bool {
	if slices.Contains(reservedPaths, path) {
		return true
	}
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// redirects answers legacy paths with a 301 to the canonical slug of the page
// that claims them. A page requested under another trailing-slash spelling
// passes through untouched.
func (s *Server) redirects(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			return next(c)
		}
		path := req.URL.Path
		if isReserved(path) {
			return next(c)
		}

		target, err := s.idx.ResolveAlias(path)
		if err != nil {
			if !errors.Is(err, index.ErrNotFound) {
				s.log.WarnContext(req.Context(), "alias lookup failed", "path", path, "err", err)
			}
			return next(c)
		}
		if target == slug.Canonicalise(path) {
			return next(c)
		}
		if q := req.URL.RawQuery; q != "" {
			target += "?" + q
		}
		return c.Redirect(http.StatusMovedPermanently, target)
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string, watch bool) error {
	if err := s.Rebuild(ctx); err != nil {
		return err
	}
	if watch {
		if err := s.startWatch(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", "addr", addr, "public", s.cfg.Build.PublicDir, "counter", s.counter != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Rebuild runs an incremental build into the served index and tells
// connected dev clients to reload when anything changed.
func (s *Server) Rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	b := &build.Builder{
		Cfg:           s.cfg,
		Index:         s.idx,
		Logger:        s.log,
		SkipUnchanged: true,
	}
	res, err := b.Run(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	if !res.Skipped {
		s.broadcastSSE("reload")
	}
	return nil
}
