package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/junaidulhaq9898/blacckainew-sub000/internal/ai"
	"github.com/junaidulhaq9898/blacckainew-sub000/internal/config"
	"github.com/junaidulhaq9898/blacckainew-sub000/internal/insta"
	"github.com/junaidulhaq9898/blacckainew-sub000/internal/logger"
	"github.com/junaidulhaq9898/blacckainew-sub000/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log, err := logger.New(os.Getenv("APP_ENV") == "development")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("database ready")

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Hub-Signature-256"},
	}))

	// --- Insta module wiring ---
	store := insta.NewStore(db)
	dedup := insta.NewDedupGuard(insta.NewDedupStore(db), cfg.DedupTTL, log)
	aiClient := ai.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIMaxTokens, cfg.OpenAITimeout)
	outbound := insta.NewInstaOutbound(cfg.GraphBaseURL, cfg.GraphTimeout, cfg.GraphRPS, log)

	resolver := insta.NewResolver(store, log)
	responder := insta.NewResponder(aiClient, store, log)
	dispatcher := insta.NewDispatcher(store, outbound, log)
	svc := insta.NewService(resolver, responder, dispatcher, dedup, outbound, log)
	handler := insta.NewHandler(svc, cfg.WebhookTimeout, log)

	insta.RegisterRoutes(r, handler)

	go dedup.Janitor(ctx, cfg.DedupPurge)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped gracefully")
	return nil
}

func applyMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	drv, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
