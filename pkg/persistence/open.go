package persistence

import (
	"context"
	"fmt"

	"github.com/goliatone/go-boarding/pkg/config"
)

// Open builds the store selected by cfg. The returned close func releases
// backend connections.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, func() error, error) {
	var (
		store   Store
		closeFn = func() error { return nil }
	)
	switch cfg.Backend {
	case "", config.StorageMemory:
		store = NewMemoryStore()
	case config.StorageRedis:
		client, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		store = NewRedisStore(client, cfg.KeyPrefix)
		closeFn = client.Close
	case config.StorageSQL:
		db, err := OpenMySQL(cfg.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		store = NewSQLStore(db)
		closeFn = func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStorage, cfg.Backend)
	}
	if cfg.Seal {
		store = NewSealedStore(store)
	}
	return store, closeFn, nil
}
