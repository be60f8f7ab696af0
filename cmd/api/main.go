package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appanalysis "github.com/verdantlab/plantscan/internal/application/analysis"
	appreports "github.com/verdantlab/plantscan/internal/application/reports"
	"github.com/verdantlab/plantscan/internal/config"
	domain "github.com/verdantlab/plantscan/internal/domain/analysis"
	aiclient "github.com/verdantlab/plantscan/internal/infra/ai/openai"
	mysqlp "github.com/verdantlab/plantscan/internal/infra/db/mysql"
	postgresp "github.com/verdantlab/plantscan/internal/infra/db/postgres"
	"github.com/verdantlab/plantscan/internal/infra/httpserver"
	"github.com/verdantlab/plantscan/internal/infra/pdf"
	minioStore "github.com/verdantlab/plantscan/internal/infra/storage"
	"github.com/verdantlab/plantscan/internal/middleware"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "plantscan").Logger()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	ctx := context.Background()

	// connect MinIO; a store connection failure at startup is fatal, the
	// process never starts accepting requests without it
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio init error")
	}

	// history database is optional
	var history domain.History
	var db *sql.DB
	if cfg.HistoryEnabled() {
		switch cfg.Database.Driver {
		case "postgres":
			db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
			if err != nil {
				log.Fatal().Err(err).Msg("postgres connect error")
			}
			history = postgresp.NewAnalysisRepository(db)
		default:
			db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
			if err != nil {
				log.Fatal().Err(err).Msg("mysql connect error")
			}
			history = mysqlp.NewAnalysisRepository(db)
		}
		defer db.Close()
	} else {
		log.Info().Msg("no database configured, analysis history disabled")
	}

	// an absent AI key is not a startup failure; the first /analyze call
	// will fail upstream instead
	if cfg.AI.APIKey == "" {
		log.Warn().Msg("ai.apiKey is empty, /analyze will fail upstream")
	}
	vision := aiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second)

	analysisSvc := &appanalysis.Service{
		Store:   store,
		Vision:  vision,
		History: history,
		Clock:   appanalysis.SystemClock{},
		Model:   cfg.AI.Model,
		Log:     log,
	}
	reportsSvc := appreports.NewService(pdf.NewRenderer())

	checkers := map[string]middleware.HealthChecker{
		"store": &middleware.StoreHealthChecker{Store: store},
	}
	if db != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Mount("/", httpserver.NewRouter(analysisSvc, reportsSvc, log, httpserver.Options{
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
		AnalyzePerMin:  cfg.Limits.AnalyzePerMin,
		AnalyzeBurst:   cfg.Limits.AnalyzeBurst,
		Checkers:       checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: PDF streaming and slow vision calls must not be
		// cut off mid-response
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
