package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/utils"
)

// ExtractionCache keys canonical documents by the SHA-256 of the uploaded
// bytes, so re-uploading an identical file skips the model call. A nil
// *ExtractionCache is valid and caches nothing (REDIS_ADDR unset).
type ExtractionCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewExtractionCache(log *logger.Logger) (*ExtractionCache, error) {
	serviceLog := log.With("service", "ExtractionCache")
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		serviceLog.Info("REDIS_ADDR not set, extraction cache disabled")
		return nil, nil
	}
	ttlHours := utils.GetEnvAsInt("EXTRACTION_CACHE_TTL_HOURS", 24, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &ExtractionCache{
		log: serviceLog,
		rdb: rdb,
		ttl: time.Duration(ttlHours) * time.Hour,
	}, nil
}

func (c *ExtractionCache) key(fileSHA string) string {
	return "extraction:doc:" + fileSHA
}

func (c *ExtractionCache) Get(ctx context.Context, fileSHA string) (*extraction.CanonicalPolicyDocument, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(fileSHA)).Bytes()
	if err != nil {
		return nil, false
	}
	var doc extraction.CanonicalPolicyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.log.Warn("Dropping unreadable cached extraction", "sha", fileSHA, "error", err)
		_ = c.rdb.Del(ctx, c.key(fileSHA)).Err()
		return nil, false
	}
	return &doc, true
}

func (c *ExtractionCache) Set(ctx context.Context, fileSHA string, doc *extraction.CanonicalPolicyDocument) {
	if c == nil || doc == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(fileSHA), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache extraction result", "sha", fileSHA, "error", err)
	}
}

func (c *ExtractionCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
