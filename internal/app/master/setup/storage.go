/**
 * 初始化:存储
 * @date: 2025.11.22
 * @description: 按 database.driver 构建设备清单存储(mysql/sqlite/memory)，启用 Redis 时包一层目录缓存
 */
package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/HectorPOsuna/escaner-red/internal/config"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/database"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
	"github.com/HectorPOsuna/escaner-red/internal/repo/memory"
	inventoryRepo "github.com/HectorPOsuna/escaner-red/internal/repo/mysql/inventory"
	redisRepo "github.com/HectorPOsuna/escaner-red/internal/repo/redis"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Storage 存储相关的聚合输出
type Storage struct {
	Store repo.InventoryStore
	DB    *gorm.DB      // memory 驱动时为 nil
	Redis *redis.Client // 未启用 Redis 时为 nil

	inventory *inventoryRepo.Store
}

// BuildStorage 构建存储
func BuildStorage(cfg *config.Config) (*Storage, error) {
	s := &Storage{}

	switch cfg.Database.Driver {
	case "mysql":
		db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
		if err != nil {
			return nil, err
		}
		s.DB = db
	case "sqlite":
		db, err := database.NewSQLiteConnection(&cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}
		s.DB = db
	case "memory":
		s.Store = memory.NewInventoryStore()
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if s.DB != nil {
		s.inventory = inventoryRepo.NewStore(s.DB)
		s.Store = s.inventory
	}

	if cfg.Database.Redis.Enabled {
		client, err := database.NewRedisConnection(&cfg.Database.Redis)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Redis = client
		s.Store = redisRepo.NewCachedStore(s.Store, redisRepo.NewRedisCatalogCache(client, cfg.Catalog.CacheTTL))
	}

	logger.LogSystemEvent("storage", "connected", "inventory storage ready", logrus.InfoLevel, map[string]interface{}{
		"driver":        cfg.Database.Driver,
		"catalog_cache": s.Redis != nil,
	})
	return s, nil
}

// Migrate 迁移全部清单表，memory 驱动无需迁移
func (s *Storage) Migrate(ctx context.Context) error {
	if s.inventory == nil {
		return nil
	}
	return s.inventory.AutoMigrate(ctx)
}

// Close 关闭数据库与 Redis 连接
func (s *Storage) Close() error {
	var errs []error
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
