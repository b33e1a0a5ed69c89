/**
 * 仓库层:设备清单(gorm)
 * @date: 2025.11.20
 * @description: repo.InventoryStore 的 gorm 实现，MySQL 与 SQLite 共用
 * @func:单纯数据访问,不应该包含业务逻辑
 */
package inventory

import (
	"context"
	"fmt"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"gorm.io/gorm"
)

// Store 设备清单仓库
type Store struct {
	db *gorm.DB
}

// NewStore 创建 Store 实例
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repo.InventoryStore = (*Store)(nil)

// DB 返回底层连接，供迁移等工具使用
func (r *Store) DB() *gorm.DB {
	return r.db
}

// AutoMigrate 迁移全部清单表
func (r *Store) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(inventory.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate inventory tables: %w", err)
	}
	return nil
}

// Transaction 在一个数据库事务内执行 fn
// 嵌套调用时 gorm 使用 SAVEPOINT
func (r *Store) Transaction(ctx context.Context, fn func(tx repo.InventoryStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Ping 检查数据库连接
func (r *Store) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
