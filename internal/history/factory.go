package history

import (
	"context"
	"fmt"

	"github.com/raaihank/dpdp-scanner/internal/config"
	"github.com/raaihank/dpdp-scanner/internal/logger"
)

// Open creates the history backend selected by cfg
func Open(ctx context.Context, cfg config.HistoryConfig, log *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MaxRecords), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, log)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.MaxRecords, log)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.Backend)
	}
}
