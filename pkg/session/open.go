package session

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and parameterizes a Store backend.
type Config struct {
	Backend     string
	FilePath    string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
	TTL         time.Duration
}

// Open builds the configured store. An empty backend selects memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log.Debug().Str("component", "session").Str("backend", backend).Msg("opening session store")

	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(cfg.FilePath)
	case BackendSQLite:
		dsn, err := SQLiteDSNForFile(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(dsn)
	case BackendRedis:
		return DialRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix, cfg.TTL)
	default:
		return nil, errors.Errorf("unknown session store backend %q", cfg.Backend)
	}
}
