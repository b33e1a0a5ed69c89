package redis

import (
	"context"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
)

// CachedStore 在 InventoryStore 外层加目录缓存
// 只缓存厂商与协议；事务内读到或新建的记录在提交后才写入缓存
// 缓存读写失败只记日志，回落到底层存储
type CachedStore struct {
	repo.InventoryStore
	cache   CatalogCache
	inTx    bool
	pending *[]func(ctx context.Context)
}

// NewCachedStore 创建带目录缓存的存储
func NewCachedStore(store repo.InventoryStore, cache CatalogCache) *CachedStore {
	return &CachedStore{
		InventoryStore: store,
		cache:          cache,
	}
}

// Transaction 包装底层事务，提交成功后刷新缓存
func (s *CachedStore) Transaction(ctx context.Context, fn func(tx repo.InventoryStore) error) error {
	if s.inTx {
		return s.InventoryStore.Transaction(ctx, func(tx repo.InventoryStore) error {
			return fn(&CachedStore{InventoryStore: tx, cache: s.cache, inTx: true, pending: s.pending})
		})
	}

	var pending []func(ctx context.Context)
	err := s.InventoryStore.Transaction(ctx, func(tx repo.InventoryStore) error {
		return fn(&CachedStore{InventoryStore: tx, cache: s.cache, inTx: true, pending: &pending})
	})
	if err != nil {
		return err
	}
	for _, write := range pending {
		write(ctx)
	}
	return nil
}

// GetManufacturerByOUI 先查缓存
func (s *CachedStore) GetManufacturerByOUI(ctx context.Context, oui string) (*inventory.Manufacturer, error) {
	cached, err := s.cache.GetManufacturer(ctx, oui)
	if err != nil {
		logCacheError(err, "get_manufacturer", oui)
	} else if cached != nil {
		return cached, nil
	}

	manufacturer, err := s.InventoryStore.GetManufacturerByOUI(ctx, oui)
	if err != nil || manufacturer == nil {
		return manufacturer, err
	}
	s.remember(ctx, func(ctx context.Context) error { return s.cache.SetManufacturer(ctx, manufacturer) }, "set_manufacturer", oui)
	return manufacturer, nil
}

// CreateManufacturer 写入成功后缓存
func (s *CachedStore) CreateManufacturer(ctx context.Context, manufacturer *inventory.Manufacturer) error {
	if err := s.InventoryStore.CreateManufacturer(ctx, manufacturer); err != nil {
		return err
	}
	created := *manufacturer
	s.remember(ctx, func(ctx context.Context) error { return s.cache.SetManufacturer(ctx, &created) }, "set_manufacturer", created.OUI)
	return nil
}

// GetProtocolByPort 先查缓存
func (s *CachedStore) GetProtocolByPort(ctx context.Context, port int) (*inventory.Protocol, error) {
	cached, err := s.cache.GetProtocol(ctx, port)
	if err != nil {
		logCacheError(err, "get_protocol", port)
	} else if cached != nil {
		return cached, nil
	}

	protocol, err := s.InventoryStore.GetProtocolByPort(ctx, port)
	if err != nil || protocol == nil {
		return protocol, err
	}
	s.remember(ctx, func(ctx context.Context) error { return s.cache.SetProtocol(ctx, protocol) }, "set_protocol", port)
	return protocol, nil
}

// CreateProtocol 写入成功后缓存
func (s *CachedStore) CreateProtocol(ctx context.Context, protocol *inventory.Protocol) error {
	if err := s.InventoryStore.CreateProtocol(ctx, protocol); err != nil {
		return err
	}
	created := *protocol
	s.remember(ctx, func(ctx context.Context) error { return s.cache.SetProtocol(ctx, &created) }, "set_protocol", created.Port)
	return nil
}

// remember 事务外立即写缓存，事务内排队到提交后
func (s *CachedStore) remember(ctx context.Context, write func(ctx context.Context) error, operation string, key interface{}) {
	run := func(ctx context.Context) {
		if err := write(ctx); err != nil {
			logCacheError(err, operation, key)
		}
	}
	if s.inTx && s.pending != nil {
		*s.pending = append(*s.pending, run)
		return
	}
	run(ctx)
}

func logCacheError(err error, operation string, key interface{}) {
	logger.LogWarn("catalog cache unavailable: "+err.Error(), "", "", "", "CACHE", map[string]interface{}{
		"operation": operation,
		"key":       key,
	})
}
