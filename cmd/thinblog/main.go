package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"thinblog/internal/build"
	"thinblog/internal/counter"
	"thinblog/internal/domain/config"
	"thinblog/internal/logger"
	"thinblog/internal/serve"
	"thinblog/internal/viewclient"
)

const version = "0.3.0"

const usage = `thinblog

Usage:
  thinblog build [--config=<file>] [--force]
  thinblog serve [--config=<file>] [--addr=<addr>] [--watch]
  thinblog counter [--config=<file>] [--addr=<addr>]
  thinblog views [--config=<file>] [--refresh] <path>...
  thinblog -h | --help
  thinblog --version

Options:
  -h --help          Show this screen.
  --version          Show version.
  --config=<file>    Site config file [default: site.yaml].
  --addr=<addr>      Listen address [default: :8080].
  --force            Rebuild even when nothing changed.
  --watch            Rebuild when sources change.
  --refresh          Ignore cached counts.
`

type Opts struct {
	Build   bool     `docopt:"build"`
	Serve   bool     `docopt:"serve"`
	Counter bool     `docopt:"counter"`
	Views   bool     `docopt:"views"`
	Config  string   `docopt:"--config"`
	Addr    string   `docopt:"--addr"`
	Force   bool     `docopt:"--force"`
	Watch   bool     `docopt:"--watch"`
	Refresh bool     `docopt:"--refresh"`
	Paths   []string `docopt:"<path>"`
	Help    bool     `docopt:"--help"`
	Version bool     `docopt:"--version"`
}

func main() {
	os.Exit(run())
}

func run() int {
	parser := &docopt.Parser{OptionsFirst: false}
	o, err := parser.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	var opts Opts
	if err := o.Bind(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Build:
		err = runBuild(ctx, cfg, log, opts.Force)
	case opts.Serve:
		err = runServe(ctx, cfg, log, opts.Addr, opts.Watch)
	case opts.Counter:
		err = runCounter(ctx, cfg, log, opts.Addr)
	case opts.Views:
		err = runViews(ctx, cfg, log, opts.Paths, opts.Refresh)
	}
	if err != nil {
		log.Error("command failed", "err", err)
		return 1
	}
	return 0
}

func runBuild(ctx context.Context, cfg config.Config, log *slog.Logger, force bool) error {
	b := &build.Builder{Cfg: cfg, Logger: log, SkipUnchanged: !force}
	res, err := b.Run(ctx)
	if err != nil {
		return err
	}
	if !res.Skipped && len(res.Conflicts) > 0 {
		log.Warn("build finished with redirect conflicts", "count", len(res.Conflicts))
	}
	return nil
}

func runServe(ctx context.Context, cfg config.Config, log *slog.Logger, addr string, watch bool) error {
	s, err := serve.New(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.ListenAndServe(ctx, addr, watch)
}

// runCounter runs the counter on its own, for hosting it apart from the site.
func runCounter(ctx context.Context, cfg config.Config, log *slog.Logger, addr string) error {
	st, err := counter.NewStore(cfg.Counter.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader(echo.TrustPrivateNet(true))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	counter.NewHandler(st, log).Register(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	log.Info("counter listening", "addr", addr, "db", cfg.Counter.DatabasePath)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStorage(cfg config.ClientConfig) (viewclient.Storage, error) {
	switch cfg.Storage {
	case config.StorageFile:
		return viewclient.OpenFile(cfg.StoragePath)
	default:
		return viewclient.OpenBolt(cfg.StoragePath)
	}
}

func runViews(ctx context.Context, cfg config.Config, log *slog.Logger, paths []string, refresh bool) error {
	storage, err := openStorage(cfg.Client)
	if err != nil {
		return fmt.Errorf("open client storage: %w", err)
	}
	defer storage.Close()

	cache := viewclient.New(viewclient.Options{
		Fetcher: viewclient.NewHTTPFetcher(cfg.Client.Endpoint, &http.Client{Timeout: 10 * time.Second}),
		Storage: storage,
		TTL:     cfg.Client.CacheTTL(),
		Logger:  log,
	})
	sub := cache.Subscribe(ctx, paths)
	defer sub.Close()

	var got viewclient.Map
	if refresh {
		if got, err = sub.Refresh(ctx); err != nil {
			return err
		}
	} else {
		state := sub.Snapshot()
		for state.Loading {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case st, ok := <-sub.Changes():
				if !ok {
					return viewclient.ErrClosed
				}
				state = st
			}
		}
		got = state.Counts
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVIEWS\tUNIQUE\tRESOLVED")
	for _, p := range paths {
		e, _ := got.Get(p)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", p, e.Total, e.Unique, e.ResolvedPath)
	}
	return tw.Flush()
}
