package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mantonx/gallery/internal/config"
	"github.com/mantonx/gallery/internal/database"
	"github.com/mantonx/gallery/internal/logger"
	"github.com/mantonx/gallery/internal/middleware"
	"github.com/mantonx/gallery/internal/modules/gallerymodule"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/api"
	galleryerrors "github.com/mantonx/gallery/internal/modules/gallerymodule/errors"
)

const usage = `usage: gallery [-config path] <command> [flags]

commands:
  index          index the configured library roots
  list [-page N] print one page of media as JSON
  serve          index, then serve the HTTP API
`

func main() {
	configPath := flag.String("config", os.Getenv("GALLERY_CONFIG_PATH"), "path to gallery.yaml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Configure(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Error("gallery failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log hclog.Logger, command string, args []string) error {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	module := gallerymodule.NewModule(*cfg, db,
		gallerymodule.WithRegistry(registry),
		gallerymodule.WithLogger(log))
	if err := module.Init(); err != nil {
		return err
	}

	switch command {
	case "index":
		res, err := module.IndexLibrary(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		page := fs.Int("page", 0, "page index")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := module.Repository().Page(ctx, *page)
		if err != nil {
			if kind := galleryerrors.KindOf(err); kind != "" {
				fmt.Fprintln(os.Stderr, galleryerrors.UserMessage(kind))
			}
			return err
		}
		return printJSON(p)

	case "serve":
		if _, err := module.IndexLibrary(ctx); err != nil {
			return err
		}
		return serve(ctx, cfg, log, module, registry)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, cfg *config.Config, log hclog.Logger, module *gallerymodule.Module, registry *prometheus.Registry) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))
	module.RegisterRoutes(router)
	api.RegisterMetrics(router, registry)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting gallery server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
