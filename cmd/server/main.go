package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	openaisdk "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/application/service"
	"github.com/garyjia/procuro/internal/config"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/workflow"
	"github.com/garyjia/procuro/internal/infrastructure/cache"
	"github.com/garyjia/procuro/internal/infrastructure/catalog"
	"github.com/garyjia/procuro/internal/infrastructure/export"
	"github.com/garyjia/procuro/internal/infrastructure/external/lark"
	"github.com/garyjia/procuro/internal/infrastructure/external/openai"
	"github.com/garyjia/procuro/internal/infrastructure/metrics"
	"github.com/garyjia/procuro/internal/infrastructure/persistence/dynamodb"
	"github.com/garyjia/procuro/internal/infrastructure/persistence/memory"
	"github.com/garyjia/procuro/internal/infrastructure/persistence/repository"
	"github.com/garyjia/procuro/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procuro/internal/infrastructure/storage"
	httpserver "github.com/garyjia/procuro/internal/interfaces/http"
	"github.com/garyjia/procuro/pkg/database"
	"github.com/garyjia/procuro/pkg/utils"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting procurement service",
		zap.String("version", version),
		zap.String("database", cfg.Database.Driver),
		zap.Int("port", cfg.Server.Port))

	repo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	documents, err := storage.NewDocumentStore(cfg.Storage.Dir, logger)
	if err != nil {
		return fmt.Errorf("init document storage: %w", err)
	}

	commodities := catalog.NewStatic()
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	extractor, classifier, err := newAIAdapters(cfg, commodities, logger)
	if err != nil {
		return err
	}

	var notifier port.StatusNotifier = lark.NopNotifier{}
	if cfg.Lark.Enabled {
		client := lark.NewClient(lark.Config{AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret}, logger)
		notifier = lark.NewNotifier(client, cfg.Lark.ReceiveIDType, cfg.Lark.ReceiveID, logger)
		logger.Info("Lark status notifications enabled", zap.String("receive_id_type", cfg.Lark.ReceiveIDType))
	}

	opts := service.DefaultOptions()
	opts.Rules.Units = entity.NewUnits(cfg.Domain.Units...)
	opts.Rules.VATPolicy = entity.VATPolicy(cfg.Domain.VATPolicy)
	opts.Policy = workflow.Permissive()
	opts.ExtractionTimeout = cfg.OpenAI.ExtractionTimeout
	opts.ClassifyTimeout = cfg.OpenAI.ClassifyTimeout

	kvLogger := utils.NewKeyValueLogger(logger)
	procurement := service.NewProcurementService(service.Dependencies{
		Repository: repo,
		Catalog:    commodities,
		Extractor:  extractor,
		Classifier: classifier,
		Storage:    documents,
		Notifier:   notifier,
		Metrics:    appMetrics,
		Logger:     kvLogger,
	}, opts)
	exports := service.NewExportService(procurement, export.NewXLSXExporter(commodities.Display, logger), kvLogger)

	serverCfg := httpserver.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	serverCfg.MaxUploadBytes = cfg.Server.MaxUploadBytes
	serverCfg.Version = version

	server := httpserver.NewServer(serverCfg, procurement, exports, appMetrics, kvLogger)
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// newRepository opens the configured request store and returns its cleanup
func newRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.RequestRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewRequestRepository(), func() {}, nil

	case config.DriverDynamoDB:
		dc := cfg.Database.DynamoDB
		client, err := dynamodb.NewClient(ctx, dynamodb.Config{
			Table:           dc.Table,
			Region:          dc.Region,
			Endpoint:        dc.Endpoint,
			AccessKeyID:     dc.AccessKeyID,
			SecretAccessKey: dc.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init dynamodb: %w", err)
		}
		if dc.CreateTable {
			if err := dynamodb.EnsureTable(ctx, client, dc.Table, logger); err != nil {
				return nil, nil, fmt.Errorf("ensure dynamodb table: %w", err)
			}
		}
		return dynamodb.NewRequestRepository(client, dc.Table, logger), func() {}, nil

	default:
		sc := cfg.Database.SQLite
		db, err := database.New(database.Config{
			Path:            sc.Path,
			MaxOpenConns:    sc.MaxOpenConns,
			MaxIdleConns:    sc.MaxIdleConns,
			ConnMaxLifetime: sc.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		if err := database.NewMigrator(db, logger).RunMigrations(ctx, database.EmbeddedMigrations()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		repo := repository.NewRequestRepository(sqlite.NewDB(db.DB, logger), logger)
		return repo, func() { _ = db.Close() }, nil
	}
}

// newAIAdapters builds the extractor and the cached classifier. Without an API key
// both stay nil and the service reports extraction and classification as unavailable.
func newAIAdapters(cfg *config.Config, commodities port.CommodityCatalog, logger *zap.Logger) (port.Extractor, port.Classifier, error) {
	if !cfg.ExtractionEnabled() {
		logger.Warn("No OpenAI API key configured, extraction and classification are disabled")
		return nil, nil, nil
	}

	prompts := openai.DefaultPrompts()
	if cfg.OpenAI.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.OpenAI.PromptsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load prompts: %w", err)
		}
		prompts = loaded
	}

	clientCfg := openaisdk.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openaisdk.NewClientWithConfig(clientCfg)

	extractor := openai.NewExtractor(client, openai.NewFitzReader(logger), prompts, openai.ExtractorConfig{
		Model:       cfg.OpenAI.Model,
		VisionModel: cfg.OpenAI.VisionModel,
		UseVision:   cfg.OpenAI.UseVision,
		MaxPages:    cfg.OpenAI.MaxPages,
	}, logger)

	var classifier port.Classifier = openai.NewClassifier(client, commodities, prompts, cfg.OpenAI.ClassifierModel, logger)
	if cfg.Classification.CacheEnabled {
		var store cache.Store = cache.NewMemoryStore()
		if addr := cfg.Classification.Redis.Addr; addr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     addr,
				Password: cfg.Classification.Redis.Password,
				DB:       cfg.Classification.Redis.DB,
			})
			store = cache.NewRedisStore(rdb, cfg.Classification.CacheTTL)
			logger.Info("Classification cache backed by Redis", zap.String("addr", addr))
		}
		classifier = cache.NewCachedClassifier(classifier, store, logger)
	}

	return extractor, classifier, nil
}
