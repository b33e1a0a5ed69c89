package redis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
	"github.com/HectorPOsuna/escaner-red/internal/repo/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache 进程内缓存，用于替代 Redis
type mapCache struct {
	mu            sync.Mutex
	manufacturers map[string]inventory.Manufacturer
	protocols     map[int]inventory.Protocol
	fail          bool
}

func newMapCache() *mapCache {
	return &mapCache{
		manufacturers: make(map[string]inventory.Manufacturer),
		protocols:     make(map[int]inventory.Protocol),
	}
}

var errCacheDown = errors.New("cache down")

func (c *mapCache) GetManufacturer(ctx context.Context, oui string) (*inventory.Manufacturer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errCacheDown
	}
	if m, ok := c.manufacturers[oui]; ok {
		return &m, nil
	}
	return nil, nil
}

func (c *mapCache) SetManufacturer(ctx context.Context, m *inventory.Manufacturer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	c.manufacturers[m.OUI] = *m
	return nil
}

func (c *mapCache) GetProtocol(ctx context.Context, port int) (*inventory.Protocol, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errCacheDown
	}
	if p, ok := c.protocols[port]; ok {
		return &p, nil
	}
	return nil, nil
}

func (c *mapCache) SetProtocol(ctx context.Context, p *inventory.Protocol) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	c.protocols[p.Port] = *p
	return nil
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewInventoryStore()
	require.NoError(t, inner.CreateManufacturer(ctx, &inventory.Manufacturer{OUI: "001A2B", Name: "Acme"}))

	cache := newMapCache()
	store := NewCachedStore(inner, cache)

	m, err := store.GetManufacturerByOUI(ctx, "001A2B")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Contains(t, cache.manufacturers, "001A2B")

	missing, err := store.GetManufacturerByOUI(ctx, "FFFFFF")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NotContains(t, cache.manufacturers, "FFFFFF")
}

func TestCachedStore_WritesAfterCommit(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	store := NewCachedStore(memory.NewInventoryStore(), cache)

	err := store.Transaction(ctx, func(tx repo.InventoryStore) error {
		require.NoError(t, tx.CreateProtocol(ctx, &inventory.Protocol{Port: 22, Name: "SSH", Category: inventory.CategorySecure}))
		assert.Empty(t, cache.protocols)
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, cache.protocols, 22)
}

func TestCachedStore_RollbackSkipsCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	inner := memory.NewInventoryStore()
	store := NewCachedStore(inner, cache)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx repo.InventoryStore) error {
		require.NoError(t, tx.CreateProtocol(ctx, &inventory.Protocol{Port: 8080, Name: "HTTP-Proxy", Category: inventory.CategoryWeb}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cache.protocols)
	assert.Empty(t, inner.Protocols())
}

func TestCachedStore_CacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewInventoryStore()
	require.NoError(t, inner.CreateProtocol(ctx, &inventory.Protocol{Port: 443, Name: "HTTPS", Category: inventory.CategorySecure}))

	cache := newMapCache()
	cache.fail = true
	store := NewCachedStore(inner, cache)

	p, err := store.GetProtocolByPort(ctx, 443)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "HTTPS", p.Name)
}

func TestCachedStore_DuplicatePassesThrough(t *testing.T) {
	ctx := context.Background()
	store := NewCachedStore(memory.NewInventoryStore(), newMapCache())

	require.NoError(t, store.CreateManufacturer(ctx, &inventory.Manufacturer{OUI: "001A2B", Name: "Acme"}))
	err := store.CreateManufacturer(ctx, &inventory.Manufacturer{OUI: "001A2B", Name: "Other"})
	assert.ErrorIs(t, err, repo.ErrDuplicateKey)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "escaner:catalog:oui:001A2B", manufacturerKey("001a2b"))
	assert.Equal(t, "escaner:catalog:port:22", protocolKey(22))
}
