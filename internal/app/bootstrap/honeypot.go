package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/scam-honeypot/internal/api/router"
	"github.com/wolfman30/scam-honeypot/internal/classify"
	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/conversation"
	"github.com/wolfman30/scam-honeypot/internal/extraction"
	"github.com/wolfman30/scam-honeypot/internal/observability/metrics"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
	"github.com/wolfman30/scam-honeypot/internal/persona"
	"github.com/wolfman30/scam-honeypot/internal/policy"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// Honeypot is the fully wired conversation service plus the resources it owns.
type Honeypot struct {
	Service      *conversation.Service
	Models       *ModelTiers
	HealthChecks map[string]router.HealthCheck

	redis *redis.Client
	pool  *pgxpool.Pool
}

// Close releases connections opened by BuildHoneypot.
func (h *Honeypot) Close() error {
	var errs []error
	if h.Models != nil {
		errs = append(errs, h.Models.Close())
	}
	if h.redis != nil {
		errs = append(errs, h.redis.Close())
	}
	if h.pool != nil {
		h.pool.Close()
	}
	return errors.Join(errs...)
}

// BuildHoneypot wires stores, model tiers, sinks and the conversation service from config.
func BuildHoneypot(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) (*Honeypot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lib, err := buildPatterns(cfg, logger)
	if err != nil {
		return nil, err
	}
	engine, err := policy.New(cfg.Policy())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: policy: %w", err)
	}

	h := &Honeypot{HealthChecks: map[string]router.HealthCheck{}}
	h.redis = BuildRedisClient(ctx, cfg, logger, false)
	if h.redis != nil {
		client := h.redis
		h.HealthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if cfg.StoreBackend == "postgres" {
		h.pool, err = BuildPGPool(ctx, cfg)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		if h.pool != nil {
			pool := h.pool
			h.HealthChecks["postgres"] = pool.Ping
		}
	}

	store, err := BuildStateStore(cfg, h.redis, h.pool)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	locker, err := BuildLocker(cfg, h.redis)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	var awsCfg *aws.Config
	if needsAWS(cfg) {
		loaded, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		awsCfg = &loaded
	}
	h.Models = BuildModelTiers(ctx, cfg, awsCfg, logger)

	deps := conversation.Deps{
		Store:    store,
		Locker:   locker,
		Patterns: lib,
		Policy:   engine,
		Sink:     BuildSink(cfg, awsCfg, logger),
		Metrics:  metrics.NewHoneypotMetrics(reg),
		Events:   conversation.NewEventLogger(logger.WithComponent("events")),
		Logger:   logger.WithComponent("conversation"),
	}

	extractOpts := []extraction.Option{extraction.WithLogger(logger.WithComponent("extraction"))}
	if client := h.Models.Client; client != nil {
		// Model ids are left empty so each tier applies its own.
		deps.Classifier = classify.NewLLMClassifier(client)
		deps.Engager = persona.NewLLMEngager(client, persona.WithLogger(logger.WithComponent("persona")))
		if cfg.SemanticExtraction {
			extractOpts = append(extractOpts, extraction.WithSemantic(
				extraction.NewLLMExtractor(client, ""), cfg.ExtractorTimeout,
			))
		}
	}
	deps.Extractor = extraction.New(lib, extractOpts...)

	h.Service, err = conversation.NewService(deps, conversation.Config{
		ClassifyTimeout: cfg.ClassifyHardTimeout,
		ClassifyTarget:  cfg.ClassifySoftTimeout,
		PersonaTimeout:  cfg.PersonaTimeout,
	})
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("bootstrap: conversation service: %w", err)
	}
	logger.Info("honeypot wired",
		"store", cfg.StoreBackend,
		"locks", cfg.LockBackend,
		"patterns", lib.Version(),
		"model_tiers", len(h.Models.Names),
	)
	return h, nil
}

func buildPatterns(cfg *appconfig.Config, logger *logging.Logger) (*patterns.Library, error) {
	if cfg.PatternsFile == "" {
		return patterns.Default(), nil
	}
	lib, err := patterns.LoadFile(cfg.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load patterns: %w", err)
	}
	logger.Info("pattern overrides loaded", "file", cfg.PatternsFile, "version", lib.Version())
	return lib, nil
}
