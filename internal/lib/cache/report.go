// Package cache stores validation reports in Redis, keyed by the sha256
// of the submitted document.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "qvalidator:report:"

// opTimeout bounds each Redis call; a slow cache must not slow validation.
const opTimeout = 2 * time.Second

// ReportCache is a Redis-backed report cache. A zero TTL disables it.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	// version separates reports produced under different meta schemas.
	version string
}

func NewReportCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ReportCache {
	return &ReportCache{
		client:  client,
		ttl:     ttl,
		logger:  logger.With().Str("component", "report_cache").Logger(),
		version: questionnaire.Hash(questionnaire.MetaSchema)[:12],
	}
}

func (c *ReportCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *ReportCache) key(hash string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, c.version, hash)
}

// Get returns the cached report for hash. Misses and Redis failures both
// return false; failures are logged.
func (c *ReportCache) Get(ctx context.Context, hash string) (*questionnaire.Report, bool) {
	if !c.Enabled() {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("redis get failed")
		return nil, false
	}

	var report questionnaire.Report
	if err := json.Unmarshal(val, &report); err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("discarding undecodable cached report")
		return nil, false
	}
	return &report, true
}

// Set caches report under its hash.
func (c *ReportCache) Set(ctx context.Context, report *questionnaire.Report) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", report.Hash, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(report.Hash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching report %s: %w", report.Hash, err)
	}
	return nil
}

