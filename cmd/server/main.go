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

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/auth"
	"github.com/cuentos-signos/backend/internal/config"
	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/database"
	"github.com/cuentos-signos/backend/internal/exercises"
	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/generator"
	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/pipeline"
	"github.com/cuentos-signos/backend/internal/validation"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Curriculum and fallback tables
	cur, err := curriculum.Load(cfg.CurriculumFile)
	if err != nil {
		log.Fatal("Failed to load curriculum", "error", err)
	}
	catalog, err := fallback.Load(cfg.FallbackCatalogFile)
	if err != nil {
		log.Fatal("Failed to load fallback catalog", "error", err)
	}
	if missing := catalog.Missing(); len(missing) > 0 {
		log.Warn("Fallback catalog has gaps", "kinds", missing)
	}

	gate, err := validation.NewGate(analyzer.New(), cur, validation.DefaultScoring())
	if err != nil {
		log.Fatal("Failed to build validation gate", "error", err)
	}

	gen, err := generator.NewFromOptions(generator.Options{
		Provider:        cfg.Generator.Provider,
		AnthropicAPIKey: cfg.Generator.AnthropicAPIKey,
		AnthropicModel:  cfg.Generator.AnthropicModel,
		GeminiAPIKey:    cfg.Generator.GeminiAPIKey,
		GeminiModel:     cfg.Generator.GeminiModel,
		CLIPath:         cfg.Generator.CLIPath,
		RPS:             cfg.Generator.RPS,
		Burst:           cfg.Generator.Burst,
	}, log)
	if err != nil {
		log.Fatal("Failed to configure generator", "error", err)
	}

	p := pipeline.New(gate, gen, catalog, cur, pipeline.Options{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Timeout:     cfg.Pipeline.Timeout,
		Concurrency: cfg.Pipeline.Concurrency,
	}, log)

	// Audit store
	var (
		db   *sql.DB
		runs exercises.RunReader
	)
	if cfg.AuditEnabled {
		db, err = database.Connect(cfg.DB)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
		if v, dirty, err := database.Version(db); err == nil {
			log.Info("Schema ready", "version", v, "dirty", dirty)
		}
		store := exercises.NewStore(db, gen.ModelName())
		p.WithRecorder(store)
		runs = store
	} else {
		log.Warn("Audit store disabled, runs will not be recorded")
	}

	// Handlers
	exerciseHandler := exercises.NewHandler(exercises.NewService(p, gate, cur, runs, log))
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, API authentication is disabled")
	}
	guard := auth.NewMiddleware(cfg.JWTSecret, cfg.APIRPS, cfg.APIBurst, log)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(guard.Authenticate, guard.Throttle)

	api.HandleFunc("/exercises/finalize", exerciseHandler.Finalize).Methods("POST")
	api.HandleFunc("/exercises/validate", exerciseHandler.Validate).Methods("POST")
	api.HandleFunc("/curriculum/levels", exerciseHandler.ListLevels).Methods("GET")
	api.HandleFunc("/curriculum/levels/{level}", exerciseHandler.GetLevel).Methods("GET")
	api.HandleFunc("/runs/{id}", exerciseHandler.GetRun).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Server starting", "port", cfg.Port, "levels", cur.MaxLevel(), "model", gen.ModelName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}
