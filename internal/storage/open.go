// Package storage selects the EntityStore backend named in the config.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_reviews/internal/domain"
	"hotel_reviews/internal/shared"
	"hotel_reviews/internal/storage/memory"
	mysqlrepo "hotel_reviews/internal/storage/mysql"
	redisstore "hotel_reviews/internal/storage/redis"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured store and a closer for its connections.
func Open(ctx context.Context, cfg shared.Config) (domain.EntityStore, io.Closer, error) {
	switch cfg.StoreBackend {
	case "", "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), nopCloser{}, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), db, nil

	case "redis":
		st, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
		return st, st, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
