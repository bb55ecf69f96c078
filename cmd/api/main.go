package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/concernlab/dialog-platform/cmd/mainconfig"
	"github.com/concernlab/dialog-platform/internal/api/router"
	appconfig "github.com/concernlab/dialog-platform/internal/config"
	"github.com/concernlab/dialog-platform/internal/content"
	"github.com/concernlab/dialog-platform/internal/dialog"
	"github.com/concernlab/dialog-platform/internal/intent"
	"github.com/concernlab/dialog-platform/internal/keypoint"
	"github.com/concernlab/dialog-platform/internal/observability/metrics"
	"github.com/concernlab/dialog-platform/internal/response"
	"github.com/concernlab/dialog-platform/internal/scoring"
	"github.com/concernlab/dialog-platform/internal/survey"
	"github.com/concernlab/dialog-platform/internal/textproc"
	"github.com/concernlab/dialog-platform/internal/translate"
	"github.com/concernlab/dialog-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dialog-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"languages", cfg.Languages,
	)

	dialogMetrics := metrics.NewDialogMetrics(nil)

	// Authored content
	bundle, err := content.Load(cfg.ResourcesDir, cfg.Languages)
	if err != nil {
		logger.Error("failed to load content", "error", err)
		os.Exit(1)
	}

	// Scoring oracles
	oracleClient := scoring.NewClient(nil, cfg.OracleTimeout, dialogMetrics)
	kpScorer := scoring.NewKeypointScorer(oracleClient, cfg.KPMatchingEndpoint, cfg.ScorerBatchSize)
	intentScorer := scoring.NewIntentScorer(oracleClient, cfg.IntentEndpoint)
	responseScorer := scoring.NewResponseScorer(oracleClient, cfg.ResponseScorerEndpoint)

	// Per-language runtimes
	languages := make(map[string]*dialog.Language, len(bundle.Languages()))
	for _, code := range bundle.Languages() {
		pack, _ := bundle.Pack(code)
		engine, err := survey.NewEngine(pack.OpeningSurvey)
		if err != nil {
			logger.Error("invalid survey configuration", "language", code, "error", err)
			os.Exit(1)
		}
		languages[code] = &dialog.Language{
			Pack:    pack,
			Survey:  engine,
			Matcher: keypoint.NewMatcher(kpScorer, pack.Keypoints, cfg.KPMatchingConfidence),
		}
	}

	var translator *translate.Translator
	if cfg.TranslatorEndpoint != "" {
		translator = translate.New(translate.Config{
			Endpoint: cfg.TranslatorEndpoint,
			APIKey:   cfg.TranslatorAPIKey,
			Enabled:  cfg.TranslatorLanguages,
			Timeout:  cfg.OracleTimeout,
		})
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}

	var archive *dialog.Archive
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open archive database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(context.Background()); err != nil {
			logger.Error("failed to ping archive database", "error", err)
			os.Exit(1)
		}
		archive = dialog.NewArchive(db)
		logger.Info("dialog archiving enabled")
	}

	manager, err := dialog.NewManager(dialog.Options{
		Store:              store,
		Archive:            archive,
		Translator:         translator,
		Detector:           intent.NewDetector(intentScorer, cfg.IntentConfidence, cfg.AdvisoryMode),
		Selector:           response.NewSelector(responseScorer, cfg.ResponseUsageFactor, cfg.CannedTextUsageFactor),
		Profanity:          textproc.NewProfanityClassifier(bundle.ProfanityTerms, bundle.ProfanityPhrases),
		Concern:            textproc.NewConcernClassifier(),
		Coref:              textproc.NewCorefResolver(cfg.CorefTheme, cfg.CorefKeyword),
		Languages:          languages,
		DefaultLanguage:    bundle.DefaultLanguage(),
		AdvisoryEnabled:    cfg.AdvisoryMode,
		AdvisoryCandidates: cfg.AdvisoryCandidates,
		Observer:           dialogMetrics,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("failed to build dialog manager", "error", err)
		os.Exit(1)
	}

	r := router.New(&router.Config{
		Logger:         logger,
		DialogHandler:  dialog.NewHandler(manager, logger),
		APIKey:         cfg.APIKey,
		MetricsHandler: promhttp.Handler(),
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func newStore(cfg *appconfig.Config, logger *logging.Logger) (dialog.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		logger.Warn("using in-memory session store; sessions will not survive restarts")
		return dialog.NewMemoryStore(), nil

	case "redis":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return dialog.NewRedisStore(client, cfg.SessionTTL), nil

	case "dynamo", "dynamodb":
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return dialog.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, cfg.SessionTTL), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
