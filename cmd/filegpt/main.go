package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/filegpt/filegpt/internal/ai"
	"github.com/filegpt/filegpt/internal/config"
	"github.com/filegpt/filegpt/internal/db"
	"github.com/filegpt/filegpt/internal/embedcache"
	"github.com/filegpt/filegpt/internal/filestore"
	"github.com/filegpt/filegpt/internal/handler"
	"github.com/filegpt/filegpt/internal/job"
	"github.com/filegpt/filegpt/internal/middleware"
	"github.com/filegpt/filegpt/internal/repo"
	"github.com/filegpt/filegpt/internal/schedule"
	"github.com/filegpt/filegpt/internal/service"
	"github.com/filegpt/filegpt/internal/vecindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "filegpt",
		Short: "filegpt backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run filegpt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()
	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("vector_provider", cfg.Vector.Provider),
	)

	database, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	timeout := time.Duration(cfg.AI.Timeout) * time.Second
	generator := ai.NewGenerator(aiProvider, cfg.AI.GenerateModel, timeout)
	embedder := ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel, timeout)
	cachedEmbedder := embedcache.WrapLRU(
		embedder,
		cfg.Pipeline.EmbedCacheSize,
		time.Duration(cfg.Pipeline.EmbedCacheTTL)*time.Minute,
	)

	index, err := vecindex.New(cfg.Vector, cfg.Pipeline.EmbedDim)
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}

	fileRepo := repo.NewFileRepo(database)
	fileService := service.NewFileService(fileRepo, store, index, nil, cfg.DriveAPIKey)
	ingestService := service.NewIngestService(fileRepo, store, embedder, index, cfg.Pipeline.ChunkBytes)
	queryService := service.NewQueryService(fileRepo, cachedEmbedder, generator, index, cfg.Pipeline.TopK)

	deps := handler.RouterDeps{
		Files:  handler.NewFileHandler(fileService, store),
		Ingest: handler.NewIngestHandler(ingestService),
		Query:  handler.NewQueryHandler(queryService),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	)
	handler.RegisterRoutes(engine.Group("/api/v1"), deps)

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.AutoIngest {
		if err := scheduler.AddJob(job.NewAutoIngestJob(fileRepo, ingestService), cfg.Jobs.AutoIngestSpec); err != nil {
			return fmt.Errorf("schedule auto ingest: %w", err)
		}
		scheduler.Start(signalCtx)
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-signalCtx.Done()
	logutil.GetLogger(ctx).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
