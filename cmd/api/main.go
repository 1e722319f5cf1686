package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bryanwahyu/comment-analyzer/internal/application"
	appai "github.com/bryanwahyu/comment-analyzer/internal/application/ai"
	appcomments "github.com/bryanwahyu/comment-analyzer/internal/application/comments"
	apphistory "github.com/bryanwahyu/comment-analyzer/internal/application/history"
	"github.com/bryanwahyu/comment-analyzer/internal/config"
	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
	"github.com/bryanwahyu/comment-analyzer/internal/domain/history"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/ai/openai"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/comment-analyzer/internal/infra/db/mysql"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/db/postgres"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/httpserver"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/index/local"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/index/vectordb"
	minioStore "github.com/bryanwahyu/comment-analyzer/internal/infra/storage"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/youtube"
	"github.com/bryanwahyu/comment-analyzer/internal/logger"
	"github.com/bryanwahyu/comment-analyzer/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, logCloser, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped", "err", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *slog.Logger) error {
	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// youtube + openai
	fetcher, err := youtube.NewClient(ctx, cfg.YouTube.APIKey, youtube.Options{
		Order:          cfg.YouTube.Order,
		IncludeReplies: cfg.YouTube.IncludeReplies,
	})
	if err != nil {
		return err
	}
	aiClient := openai.NewClient(cfg.OpenAI.APIKey, openai.Options{
		BaseURL:    cfg.OpenAI.BaseURL,
		ChatModel:  cfg.OpenAI.ChatModel,
		EmbedModel: cfg.OpenAI.EmbeddingModel,
		BatchSize:  cfg.OpenAI.EmbedBatchSize,
		Workers:    cfg.OpenAI.EmbedWorkers,
	})

	// index: metadata selalu di disk, vektor di disk atau pgvector
	ws := local.NewWorkspace(cfg.Index.Dir)
	var index domain.Index
	switch cfg.Index.Backend {
	case config.BackendPGVector:
		vx, err := vectordb.Connect(ctx, cfg.VectorDSN())
		if err != nil {
			return fmt.Errorf("pgvector connect: %w", err)
		}
		if err := vx.EnsureSchema(ctx); err != nil {
			vx.Close()
			return fmt.Errorf("pgvector schema: %w", err)
		}
		checkers["vector_index"] = middleware.CheckFunc(vx.Ping)
		index = vx
	default:
		index = local.NewIndex(ws)
	}
	defer index.Close()

	// history
	repos, db, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	svc := &appcomments.Service{
		Fetcher:   fetcher,
		Assistant: appai.NewService(aiClient),
		Index:     index,
		Workspace: ws,
		History:   repos,
		Clock:     application.SystemClock{},
		Logger:    lg,
		Config: appcomments.Config{
			MaxComments:   cfg.YouTube.MaxComments,
			DefaultK:      cfg.Index.DefaultK,
			MaxK:          cfg.Index.MaxK,
			Summarize:     cfg.Analysis.Summarize,
			SummarySample: cfg.Analysis.SummarySample,
			TopComments:   cfg.Analysis.TopComments,
		},
	}

	// init minio (optional)
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init error: %w", err)
		}
		svc.Snapshots = store
	}

	var ready atomic.Bool
	if err := svc.Restore(); err != nil {
		lg.Warn("could not restore current video", "err", err)
	}
	ready.Store(true)

	router := httpserver.NewRouter(svc, &apphistory.Service{Repos: repos}, httpserver.Options{
		Logger:      lg,
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		SessionTTL:  cfg.Server.SessionTTL,
		DefaultK:    cfg.Index.DefaultK,
		Checkers:    checkers,
		Ready:       ready.Load,
	})
	defer router.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", "addr", addr, "index", cfg.Index.Backend, "history", historyName(cfg))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}
	lg.Info("shutting down server...")
	ready.Store(false)

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// openHistory returns the history stores for the configured driver. The
// returned db is nil when history is kept in memory.
func openHistory(ctx context.Context, cfg *config.Config) (history.Repositories, *sql.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return history.Repositories{}, nil, fmt.Errorf("mysql connect error: %w", err)
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return history.Repositories{}, nil, err
		}
		return history.Repositories{
			Analyses:  mysqlp.NewAnalysisRepository(db),
			Questions: mysqlp.NewQuestionRepository(db),
			Failures:  mysqlp.NewFailureRepository(db),
		}, db, nil
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return history.Repositories{}, nil, fmt.Errorf("postgres connect error: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return history.Repositories{}, nil, err
		}
		return history.Repositories{
			Analyses:  postgres.NewAnalysisRepository(db),
			Questions: postgres.NewQuestionRepository(db),
			Failures:  postgres.NewFailureRepository(db),
		}, db, nil
	}
	return memory.NewRepositories(), nil, nil
}

func historyName(cfg *config.Config) string {
	if cfg.Database.Driver == "" {
		return "memory"
	}
	return cfg.Database.Driver
}
