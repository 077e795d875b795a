package bootstrap

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/state"
)

// BuildStateStore selects the state backend named by STATE_STORE.
func BuildStateStore(cfg *appconfig.Config, redisClient *redis.Client, pool *pgxpool.Pool) (state.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "memory":
		return state.NewMemoryStore(), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis state store requires REDIS_ADDR")
		}
		return state.NewRedisStore(redisClient, cfg.StateTTL, nil), nil
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: postgres state store requires DATABASE_URL")
		}
		return state.NewPGStore(pool), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown state store %q", cfg.StoreBackend)
	}
}

// BuildLocker selects the per-conversation lock named by LOCK_BACKEND.
func BuildLocker(cfg *appconfig.Config, redisClient *redis.Client) (state.Locker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LockBackend)) {
	case "", "local":
		return state.NewKeyedMutex(), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis locker requires REDIS_ADDR")
		}
		return state.NewRedisLocker(redisClient, cfg.LockTTL, 0), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown lock backend %q", cfg.LockBackend)
	}
}
