package app

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
	"github.com/jzielinski/invoicescan/internal/matching"
	"github.com/jzielinski/invoicescan/internal/repository"
)

// App is the wired object graph shared by the daemon and the CLI.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	Rulesets  repository.RulesetRepository
	Templates repository.TemplateRepository
	Tracker   *learning.Tracker
	Engine    *keyword.Engine
	Extractor *extract.Extractor
	Logger    *slog.Logger
}

// Bootstrap opens the database, applies the schema, loads the keyword
// configuration, and seeds learned vendor state from storage.
func Bootstrap(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db, logger); err != nil {
		db.Close(logger)
		return nil, err
	}

	rulesets := repository.NewRulesetRepository(db, logger)
	templates := repository.NewTemplateRepository(db, logger)

	global, err := loadGlobalConfig(ctx, cfg, rulesets, logger)
	if err != nil {
		db.Close(logger)
		return nil, err
	}

	tracker := learning.NewTracker(keyword.DefaultWeights(), logger)
	if err := seedTracker(ctx, rulesets, tracker, logger); err != nil {
		db.Close(logger)
		return nil, err
	}

	engine := keyword.NewEngine(global, tracker, cfg.Engine.RulesetCacheTTL, logger)
	extractor := extract.New(engine, tracker, extract.DefaultConfidenceModel(), logger)

	return &App{
		Config:    cfg,
		DB:        db,
		Rulesets:  rulesets,
		Templates: templates,
		Tracker:   tracker,
		Engine:    engine,
		Extractor: extractor,
		Logger:    logger,
	}, nil
}

// MatchOptions returns the configured fuzzy-match thresholds.
func (a *App) MatchOptions() matching.Options {
	return matching.Options{
		AutoMatchThreshold:  a.Config.Engine.AutoMatchThreshold,
		AutoCreateThreshold: a.Config.Engine.AutoCreateThreshold,
	}
}

func (a *App) Close() {
	a.DB.Close(a.Logger)
}

// loadGlobalConfig prefers the stored ruleset; a fresh database is seeded
// from the YAML file when present, or the built-in defaults.
func loadGlobalConfig(ctx context.Context, cfg *common.Config, rulesets repository.RulesetRepository, logger *slog.Logger) (keyword.GlobalConfig, error) {
	stored, err := rulesets.LatestGlobal(ctx)
	if err == nil {
		logger.Info("loaded global keyword config", "version", stored.Version, "source", "database")
		return stored, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return keyword.GlobalConfig{}, err
	}

	global := keyword.Defaults()
	source := "defaults"
	if path := cfg.Engine.KeywordConfigPath; path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			global, err = keyword.LoadGlobalConfig(path, keyword.DefaultWeights())
			if err != nil {
				return keyword.GlobalConfig{}, err
			}
			source = path
		}
	}
	if err := rulesets.SaveGlobal(ctx, global); err != nil {
		return keyword.GlobalConfig{}, err
	}
	logger.Info("seeded global keyword config", "version", global.Version, "source", source)
	return global, nil
}

func seedTracker(ctx context.Context, rulesets repository.RulesetRepository, tracker *learning.Tracker, logger *slog.Logger) error {
	keys, err := rulesets.ListVendorKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		ov, err := rulesets.GetVendor(ctx, key)
		if err != nil {
			return err
		}
		stats, err := rulesets.ListStats(ctx, key)
		if err != nil {
			return err
		}
		tracker.Seed(ov, stats)
	}
	if len(keys) > 0 {
		logger.Info("seeded learned vendor state", "vendors", len(keys))
	}
	return nil
}
