package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/socialpulse/backend/pkg/config"
)

// NewClient builds the redis client used for verification codes, sweep
// dedupe keys and on-demand job tombstones. Connection failure at startup is
// fatal: those keys carry correctness, not just performance.
func NewClient(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		l.Errorw("redis ping failed", "addr", cfg.Redis.Addr, "err", err)
		return nil, err
	}
	l.Infow("connected to redis", "addr", cfg.Redis.Addr)
	return client, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(NewStore),
)
