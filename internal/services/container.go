// internal/services/container.go
// Service container provides dependency injection for all business logic
// services and holds the most recently evaluated competition. Evaluation
// itself is single-threaded; the container only guards the swap of the
// finished, immutable result.

package services

import (
	"fmt"
	"strings"
	"sync"

	"compcore/internal/config"
	"compcore/internal/database"
	"compcore/internal/scoring"

	"github.com/sirupsen/logrus"
)

// Container holds all service instances and provides them to handlers
type Container struct {
	Competition *CompetitionService
	Cache       *CacheService

	cfg    *config.Config
	logger *logrus.Logger

	mu      sync.RWMutex
	current *Competition
}

// NewContainer creates a new service container with all dependencies and
// performs the initial compstate evaluation.
func NewContainer(db *database.Connections, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	scorer, err := buildScorer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}

	var cache *CacheService
	if db != nil && cfg.Features.EnableCache {
		cache = NewCacheService(db.Redis, logger)
	} else {
		cache = NewCacheService(nil, logger)
	}

	c := &Container{
		Competition: NewCompetitionService(scorer, nil),
		Cache:       cache,
		cfg:         cfg,
		logger:      logger,
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}

	return c, nil
}

// buildScorer selects the scoring collaborator: the compstate's own
// scoring script run as a subprocess, or the built-in pass-through.
func buildScorer(cfg *config.Config) (scoring.Scorer, error) {
	if cfg.Scorer.Command == "" {
		return scoring.NewGameScorer(), nil
	}
	return scoring.NewSubprocessScorer(strings.Fields(cfg.Scorer.Command), cfg.Scorer.Timeout)
}

// Current returns the most recently evaluated competition.
func (c *Container) Current() *Competition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Reload re-evaluates the compstate directory from scratch and swaps the
// result in. The previous competition stays valid for readers holding it.
func (c *Container) Reload() error {
	comp, err := c.Competition.Load(c.cfg.Compstate.Dir)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = comp
	c.mu.Unlock()

	if err := c.Cache.InvalidatePattern("compcore:cache:*"); err != nil {
		c.logger.WithError(err).Warn("Failed to invalidate cache after reload")
	}

	c.logger.WithFields(logrus.Fields{
		"teams":   len(comp.Teams),
		"matches": len(comp.Matches),
	}).Info("Compstate evaluated")

	return nil
}
