/**
 * 仓库层:目录缓存
 * @date: 2025.11.22
 * @description: OUI->厂商、端口->协议 的 Redis 缓存(JSON)，多实例共享
 * @func:单纯数据访问,不应该包含业务逻辑
 */
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "escaner:catalog:"

// CatalogCache 目录缓存，未命中返回 (nil, nil)
type CatalogCache interface {
	GetManufacturer(ctx context.Context, oui string) (*inventory.Manufacturer, error)
	SetManufacturer(ctx context.Context, manufacturer *inventory.Manufacturer) error
	GetProtocol(ctx context.Context, port int) (*inventory.Protocol, error)
	SetProtocol(ctx context.Context, protocol *inventory.Protocol) error
}

// RedisCatalogCache Redis 目录缓存
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCatalogCache 创建 Redis 目录缓存
func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
	}
}

// GetManufacturer 按 OUI 读取厂商
func (c *RedisCatalogCache) GetManufacturer(ctx context.Context, oui string) (*inventory.Manufacturer, error) {
	var m inventory.Manufacturer
	found, err := c.get(ctx, manufacturerKey(oui), &m)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

// SetManufacturer 写入厂商
func (c *RedisCatalogCache) SetManufacturer(ctx context.Context, manufacturer *inventory.Manufacturer) error {
	return c.set(ctx, manufacturerKey(manufacturer.OUI), manufacturer)
}

// GetProtocol 按端口读取协议
func (c *RedisCatalogCache) GetProtocol(ctx context.Context, port int) (*inventory.Protocol, error) {
	var p inventory.Protocol
	found, err := c.get(ctx, protocolKey(port), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SetProtocol 写入协议
func (c *RedisCatalogCache) SetProtocol(ctx context.Context, protocol *inventory.Protocol) error {
	return c.set(ctx, protocolKey(protocol.Port), protocol)
}

func (c *RedisCatalogCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCatalogCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// manufacturerKey [KEY:escaner:catalog:oui:{OUI}]
func manufacturerKey(oui string) string {
	return keyPrefix + "oui:" + strings.ToUpper(oui)
}

// protocolKey [KEY:escaner:catalog:port:{port}]
func protocolKey(port int) string {
	return fmt.Sprintf("%sport:%d", keyPrefix, port)
}
