package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestInventoryStore_InsertOutcomes(t *testing.T) {
	store := NewInventoryStore()
	ctx := context.Background()

	outcome, err := store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:01")})
	require.NoError(t, err)
	assert.Equal(t, repo.InsertCreated, outcome)

	// MAC 与 IP 同时冲突时报告 MAC
	outcome, err = store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:01")})
	require.NoError(t, err)
	assert.Equal(t, repo.InsertConflictOnMAC, outcome)

	outcome, err = store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, repo.InsertConflictOnIP, outcome)

	assert.Len(t, store.Devices(), 1)
}

func TestInventoryStore_UpdateRejectsTakenKeys(t *testing.T) {
	store := NewInventoryStore()
	ctx := context.Background()

	_, err := store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:01")})
	require.NoError(t, err)
	_, err = store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.2", MAC: strPtr("AA:BB:CC:00:00:02")})
	require.NoError(t, err)

	err = store.UpdateDeviceByIP(ctx, &inventory.Device{IP: "10.0.0.2", MAC: strPtr("AA:BB:CC:00:00:01")})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))

	err = store.UpdateDeviceByMAC(ctx, &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:02")})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))
}

func TestInventoryStore_TransactionRollback(t *testing.T) {
	store := NewInventoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, store.CreateProtocol(ctx, &inventory.Protocol{Port: 22, Name: "ssh"}))

	err := store.Transaction(ctx, func(tx repo.InventoryStore) error {
		if _, err := tx.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1"}); err != nil {
			return err
		}
		if err := tx.CreateProtocol(ctx, &inventory.Protocol{Port: 80}); err != nil {
			return err
		}
		// 嵌套事务复用外层
		return tx.Transaction(ctx, func(inner repo.InventoryStore) error {
			return inner.InsertConflict(ctx, &inventory.Conflict{IP: "10.0.0.1"})
		})
	})
	require.NoError(t, err)
	assert.Len(t, store.Devices(), 1)
	assert.Len(t, store.Conflicts(), 1)

	err = store.Transaction(ctx, func(tx repo.InventoryStore) error {
		if _, err := tx.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.2"}); err != nil {
			return err
		}
		if err := tx.InsertConflict(ctx, &inventory.Conflict{IP: "10.0.0.2"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, store.Devices(), 1)
	assert.Len(t, store.Conflicts(), 1)
	assert.Len(t, store.Protocols(), 2)
}

func TestInventoryStore_ReturnsCopies(t *testing.T) {
	store := NewInventoryStore()
	ctx := context.Background()

	mac := "AA:BB:CC:00:00:01"
	device := &inventory.Device{IP: "10.0.0.1", MAC: &mac, Hostname: "a"}
	_, err := store.InsertDevice(ctx, device)
	require.NoError(t, err)

	mac = "FF:FF:FF:00:00:00"
	got, err := store.GetDeviceByIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AA:BB:CC:00:00:01", got.MACValue())

	got.Hostname = "mutated"
	again, err := store.GetDeviceByIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Hostname)
}

func TestInventoryStore_FindOperatingSystemLike(t *testing.T) {
	store := NewInventoryStore()
	ctx := context.Background()

	for _, name := range []string{"Windows Server 2019", "Windows 10", "Windows"} {
		require.NoError(t, store.CreateOperatingSystem(ctx, &inventory.OperatingSystem{Name: name}))
	}

	os, err := store.FindOperatingSystemLike(ctx, "windows")
	require.NoError(t, err)
	require.NotNil(t, os)
	assert.Equal(t, "Windows", os.Name)

	os, err = store.FindOperatingSystemLike(ctx, "Solaris")
	require.NoError(t, err)
	assert.Nil(t, os)
}
