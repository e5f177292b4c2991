package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/embedding"
	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/history"
	"github.com/spigell/resume-classifier/internal/logger"
	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/secrets"
	"github.com/spigell/resume-classifier/internal/service"
	"github.com/spigell/resume-classifier/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// application bundles everything a command needs. Close releases the ledger and
// flushes the logger.
type application struct {
	config  *Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	store   *store.Store
	ledger  feedback.Ledger
	archive *extract.Archive
	history *history.Log
	service *service.Service
}

func (a *application) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("closing feedback ledger", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// newLogger builds the process logger or exits.
func newLogger(config *Config) *zap.Logger {
	opts := logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	}
	if config != nil && config.Log != nil {
		opts.File = config.Log.File
		opts.MaxSizeMB = config.Log.MaxSizeMB
		opts.MaxBackups = config.Log.MaxBackups
		opts.MaxAgeDays = config.Log.MaxAgeDays
		opts.Compress = config.Log.Compress
	}

	l, err := logger.New(opts)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// bootstrap loads the config and wires the classification service. The
// supervised model is not loaded here; commands decide how to treat a missing
// or broken artifact.
func bootstrap(ctx context.Context) *application {
	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}
	if config == nil {
		log.Fatal("config is required")
	}

	appLogger := newLogger(config)

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	appLogger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	roles, err := catalog.Load(config.Catalog.Path)
	if err != nil {
		appLogger.Fatal("loading role catalog", zap.Error(err))
	}

	embedder, err := newEmbedder(ctx, config.Embedding, appLogger)
	if err != nil {
		appLogger.Fatal("creating embedder", zap.Error(err))
	}

	index, err := embedding.BuildIndex(ctx, embedder, roles)
	if err != nil {
		appLogger.Fatal("building embedding index", zap.Error(err))
	}
	appLogger.Info("embedding index is ready",
		zap.Int("roles", index.Len()),
		zap.String(logger.FieldEmbeddingModel, index.ModelID()),
	)

	ledger, err := newLedger(ctx, config.Feedback, appLogger)
	if err != nil {
		appLogger.Fatal("opening feedback ledger", zap.Error(err))
	}

	extractor := extract.New(config.Extract.MinLength, config.Extract.Timeout)
	archive := &extract.Archive{Dir: config.Archive.Dir, Extractor: extractor}

	hist, err := history.Open(config.History.Path)
	if err != nil {
		appLogger.Fatal("opening classification history", zap.Error(err))
	}

	models := store.New(config.Model.Path, appLogger)

	deps := service.Deps{
		Scorer:    scorer.New(roles, index, embedder, appLogger),
		Store:     models,
		Ledger:    ledger,
		Extractor: extractor,
		History:   hist,
		Logger:    appLogger,
		TopN:      config.Scorer.TopN,
	}
	if config.Archive.SaveUploads {
		deps.Archive = archive
	}

	return &application{
		config:  config,
		logger:  appLogger,
		catalog: roles,
		store:   models,
		ledger:  ledger,
		archive: archive,
		history: hist,
		service: service.New(deps),
	}
}

// loadModel installs the artifact if there is one. A broken artifact keeps the
// service in embedding mode and is only logged.
func (a *application) loadModel(ctx context.Context) store.Mode {
	mode, err := a.store.Load(ctx)
	if err != nil {
		var loadErr *store.ModelLoadError
		if !errors.As(err, &loadErr) {
			a.logger.Fatal("loading model", zap.Error(err))
		}
		a.logger.Warn("model artifact is unusable, serving in embedding mode", zap.Error(err))
	}
	return mode
}

func newEmbedder(ctx context.Context, cfg *EmbeddingConfig, log *zap.Logger) (embedding.Embedder, error) {
	var inner embedding.Embedder

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", "hash":
		inner = embedding.NewHashEmbedder(cfg.Dimensions)
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}

		g, err := embedding.NewGeminiEmbedder(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log.With(
			zap.String("provider", "gemini"),
			zap.String("model", cfg.Gemini.Model),
			zap.Int("retry_attempts", cfg.Gemini.MaxRetries),
		))
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if cfg.CacheTTL <= 0 {
		return inner, nil
	}
	return embedding.NewCached(inner, cfg.CacheTTL), nil
}

func newLedger(ctx context.Context, cfg *FeedbackConfig, log *zap.Logger) (feedback.Ledger, error) {
	switch backend := strings.TrimSpace(strings.ToLower(cfg.Backend)); backend {
	case "", "csv":
		l, err := feedback.OpenCSV(cfg.Path, log)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "sqlite":
		l, err := feedback.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported feedback backend: %s", cfg.Backend)
	}
}
