package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/scan"
	"github.com/raaihank/dpdp-scanner/internal/source"
)

// RedisStore keeps scan history in a capped Redis list, newest first
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	max       int
	logger    *logger.Logger
}

// NewRedisStore connects to redisURL
func NewRedisStore(ctx context.Context, redisURL, keyPrefix string, max int, log *logger.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	store := NewRedisStoreFromClient(redis.NewClient(opts), keyPrefix, max, log)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := store.client.Ping(pingCtx).Err(); err != nil {
		store.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("History store initialized",
		zap.String("backend", "redis"),
		zap.String("redis_url", source.MaskDSN(redisURL)),
		zap.Int("max_records", max),
	)

	return store, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, keyPrefix string, max int, log *logger.Logger) *RedisStore {
	if max <= 0 {
		max = 1000
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, max: max, logger: log}
}

func (s *RedisStore) listKey() string {
	return s.keyPrefix + "scans"
}

func (s *RedisStore) seqKey() string {
	return s.keyPrefix + "scans:seq"
}

func (s *RedisStore) Record(ctx context.Context, result *scan.Result) error {
	record := FromResult(result)

	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate scan record id: %w", err)
	}
	record.ID = id

	data, err := json.Marshal(storedRecord(record))
	if err != nil {
		return fmt.Errorf("failed to encode scan record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.listKey(), data)
	pipe.LTrim(ctx, s.listKey(), 0, int64(s.max-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store scan record: %w", err)
	}

	s.logger.Debug("Scan recorded", zap.String("scan_id", record.ScanID), zap.Int64("id", id))
	return nil
}

// Recent returns up to n records, newest first
func (s *RedisStore) Recent(ctx context.Context, n int) ([]Record, error) {
	items, err := s.client.LRange(ctx, s.listKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		var stored storedRecord
		if err := json.Unmarshal([]byte(item), &stored); err != nil {
			s.logger.Warn("Skipping corrupt history entry", zap.Error(err))
			continue
		}
		records = append(records, Record(stored))
	}
	return records, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// storedRecord is the Redis encoding of a Record, which keeps the id
type storedRecord struct {
	ID           int64     `json:"id"`
	ScanID       string    `json:"scan_id"`
	Source       string    `json:"filename"`
	ScannedAt    time.Time `json:"scan_date"`
	FindingCount int       `json:"total_leaks"`
	RiskLevel    string    `json:"risk_score"`
}
