package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tenderflow/db"
	"tenderflow/db/migrations"
	"tenderflow/internal/attachments"
	"tenderflow/internal/config"
	"tenderflow/internal/eventlog"
	"tenderflow/internal/handlers"
	"tenderflow/internal/logger"
	"tenderflow/internal/memstore"
	"tenderflow/internal/projection"
	"tenderflow/internal/refcache"
	"tenderflow/internal/requests"
	"tenderflow/internal/workflow"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// backend реализуют и db.Storage, и memstore.Store
type backend interface {
	requests.Repository
	requests.References
	eventlog.Repository
	attachments.Repository
	handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "tenderflow")
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	var store backend
	if cfg.DBEnabled {
		dbConn, err := sqlx.Connect("postgres", cfg.Database.ConnString)
		if err != nil {
			log.Fatal("Cannot connect to DB", zap.Error(err))
		}
		defer dbConn.Close()
		dbConn.SetMaxOpenConns(cfg.Database.MaxOpenConns)

		if err := migrations.Run(dbConn.DB); err != nil {
			log.Fatal("Migrations failed", zap.Error(err))
		}
		store = db.NewStorage(dbConn)
	} else {
		store = seedMemory(cfg.SeedDepartments, log)
	}

	var refs requests.References = store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		refs = refcache.New(store, rdb, cfg.Redis.TTL, log)
		log.Info("Reference cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	reqStore := requests.NewStore(store, refs, requests.Options{MaxAttempts: cfg.Workflow.MaxAttempts}, log)
	events := eventlog.New(store, log)
	engine := workflow.NewEngine(reqStore, events, workflow.Config{
		MaxAttempts:    cfg.Workflow.MaxAttempts,
		AppendAttempts: cfg.Workflow.AppendAttempts,
	}, log)
	files := attachments.NewTracker(store, reqStore, events, reqStore.Now, cfg.Workflow.AppendAttempts, log)

	h := handlers.NewHandler(reqStore, engine, events, files, store, projection.Limits{
		Default: cfg.List.DefaultLimit,
		Max:     cfg.List.MaxLimit,
	}, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Route("/api", h.Routes)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Starting server", zap.String("addr", cfg.HTTP.Addr), zap.Bool("db_enabled", cfg.DBEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// seedMemory создает хранилище в памяти с отделами из конфига и пользователем admin
func seedMemory(departments []string, log *zap.Logger) *memstore.Store {
	m := memstore.New()
	for _, name := range departments {
		id := uuid.NewString()
		m.AddDepartment(id, name)
		log.Info("Seeded department", zap.String("id", id), zap.String("name", name))
	}
	adminID := uuid.NewString()
	m.AddUser(adminID, "admin")
	log.Info("Seeded user", zap.String("id", adminID), zap.String("username", "admin"))
	return m
}
