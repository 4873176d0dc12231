package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark-c-hall/whatmovies/internal/config"
	"github.com/mark-c-hall/whatmovies/internal/favorites"
	"github.com/mark-c-hall/whatmovies/internal/graph"
	"github.com/mark-c-hall/whatmovies/internal/handler"
	"github.com/mark-c-hall/whatmovies/internal/telemetry"
	"github.com/mark-c-hall/whatmovies/internal/tmdb"
	"github.com/mark-c-hall/whatmovies/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	tel, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}

	deps := handler.Deps{
		Catalog: tmdb.NewClient(*cfg),
		FS:      web.FS,
		Metrics: tel.MetricsHandler(),
		Logger:  logger,
	}

	switch cfg.Favorites.Backend {
	case config.BackendNeo4j:
		d, err := graph.NewDriver(context.Background(), cfg.DB)
		if err != nil {
			log.Fatalf("failed to initialize neo4j driver: %v", err)
		}
		defer d.Close(context.Background())

		if err := d.SetupSchema(context.Background()); err != nil {
			log.Fatalf("failed to set up schema: %v", err)
		}
		deps.Favorites = d
		deps.Health = d
	default:
		deps.Favorites = favorites.NewMemory()
	}
	logger.Info("favorites backend ready", "backend", cfg.Favorites.Backend)

	h, err := handler.NewHandler(deps, *cfg)
	if err != nil {
		log.Fatalf("failed to initialize handler: %v", err)
	}

	srv := http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		log.Printf("shutdown did not complete cleanly: %v", err)
	}
	if err := tel.Shutdown(timeoutCtx); err != nil {
		log.Printf("telemetry shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
