package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// 内存库每个连接独立，固定为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := NewStore(db)
	require.NoError(t, store.AutoMigrate(context.Background()))
	return store
}

func strPtr(s string) *string { return &s }

func TestStore_InsertDevice_Outcomes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first := &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:01"), Hostname: "a", LastSeenAt: &now}
	outcome, err := store.InsertDevice(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, repo.InsertCreated, outcome)
	assert.NotZero(t, first.ID)

	// 同 MAC 不同 IP
	sameMAC := &inventory.Device{IP: "10.0.0.2", MAC: strPtr("AA:BB:CC:00:00:01"), Hostname: "a"}
	outcome, err = store.InsertDevice(ctx, sameMAC)
	require.NoError(t, err)
	assert.Equal(t, repo.InsertConflictOnMAC, outcome)

	// 同 IP 无 MAC
	sameIP := &inventory.Device{IP: "10.0.0.1", Hostname: "b"}
	outcome, err = store.InsertDevice(ctx, sameIP)
	require.NoError(t, err)
	assert.Equal(t, repo.InsertConflictOnIP, outcome)

	// 多个 NULL MAC 不冲突
	outcome, err = store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.3"})
	require.NoError(t, err)
	assert.Equal(t, repo.InsertCreated, outcome)
	outcome, err = store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.4"})
	require.NoError(t, err)
	assert.Equal(t, repo.InsertCreated, outcome)
}

func TestStore_UpdateDevice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:01"), Hostname: "old"})
	require.NoError(t, err)

	ttl := 128
	err = store.UpdateDeviceByIP(ctx, &inventory.Device{IP: "10.0.0.1", MAC: strPtr("AA:BB:CC:00:00:01"), Hostname: "new", TTL: &ttl})
	require.NoError(t, err)

	got, err := store.GetDeviceByIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Hostname)
	require.NotNil(t, got.TTL)
	assert.Equal(t, 128, *got.TTL)

	// 按 MAC 更新会覆盖 IP
	err = store.UpdateDeviceByMAC(ctx, &inventory.Device{IP: "10.0.0.9", MAC: strPtr("AA:BB:CC:00:00:01"), Hostname: "moved"})
	require.NoError(t, err)

	gone, err := store.GetDeviceByIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	moved, err := store.GetDeviceByMAC(ctx, "AA:BB:CC:00:00:01")
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, "10.0.0.9", moved.IP)
	assert.Equal(t, got.ID, moved.ID)

	// MAC 被其它行占用
	_, err = store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.2", MAC: strPtr("AA:BB:CC:00:00:02")})
	require.NoError(t, err)
	err = store.UpdateDeviceByIP(ctx, &inventory.Device{IP: "10.0.0.2", MAC: strPtr("AA:BB:CC:00:00:01")})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))
}

func TestStore_NotFoundReturnsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d, err := store.GetDeviceByIP(ctx, "192.168.1.1")
	assert.NoError(t, err)
	assert.Nil(t, d)

	m, err := store.GetManufacturerByOUI(ctx, "001A2B")
	assert.NoError(t, err)
	assert.Nil(t, m)

	p, err := store.GetProtocolByPort(ctx, 22)
	assert.NoError(t, err)
	assert.Nil(t, p)

	u, err := store.GetProtocolUsage(ctx, 1, 1, 22)
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestStore_CatalogDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateManufacturer(ctx, &inventory.Manufacturer{OUI: "001A2B", Name: "Acme"}))
	err := store.CreateManufacturer(ctx, &inventory.Manufacturer{OUI: "001A2B", Name: "Other"})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))

	require.NoError(t, store.CreateProtocol(ctx, &inventory.Protocol{Port: 22, Name: "ssh", Category: inventory.CategorySecure}))
	err = store.CreateProtocol(ctx, &inventory.Protocol{Port: 22, Name: "dup"})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))

	require.NoError(t, store.CreateOperatingSystem(ctx, &inventory.OperatingSystem{Name: "Linux"}))
	err = store.CreateOperatingSystem(ctx, &inventory.OperatingSystem{Name: "Linux"})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))
}

func TestStore_FindOperatingSystemLike(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Windows Server 2019", "Windows 10", "Windows", "Linux 5_x"} {
		require.NoError(t, store.CreateOperatingSystem(ctx, &inventory.OperatingSystem{Name: name}))
	}

	os, err := store.FindOperatingSystemLike(ctx, "Windows")
	require.NoError(t, err)
	require.NotNil(t, os)
	assert.Equal(t, "Windows", os.Name)

	os, err = store.FindOperatingSystemLike(ctx, "Server")
	require.NoError(t, err)
	require.NotNil(t, os)
	assert.Equal(t, "Windows Server 2019", os.Name)

	// 通配符按字面匹配
	os, err = store.FindOperatingSystemLike(ctx, "5_x")
	require.NoError(t, err)
	require.NotNil(t, os)
	assert.Equal(t, "Linux 5_x", os.Name)

	os, err = store.FindOperatingSystemLike(ctx, "%")
	require.NoError(t, err)
	assert.Nil(t, os)
}

func TestStore_ProtocolUsageTouch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	usage := &inventory.ProtocolUsage{DeviceID: 1, ProtocolID: 2, DetectedPort: 443, LastSeenAt: first, State: inventory.UsageStateActive}
	require.NoError(t, store.CreateProtocolUsage(ctx, usage))

	err := store.CreateProtocolUsage(ctx, &inventory.ProtocolUsage{DeviceID: 1, ProtocolID: 2, DetectedPort: 443, State: inventory.UsageStateActive})
	assert.True(t, errors.Is(err, repo.ErrDuplicateKey))

	later := first.Add(time.Hour)
	require.NoError(t, store.TouchProtocolUsage(ctx, &inventory.ProtocolUsage{DeviceID: 1, ProtocolID: 2, DetectedPort: 443, LastSeenAt: later, State: inventory.UsageStateActive}))

	got, err := store.GetProtocolUsage(ctx, 1, 2, 443)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LastSeenAt.Equal(later))
	assert.Equal(t, inventory.UsageStateActive, got.State)
}

func TestStore_TransactionRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx repo.InventoryStore) error {
		if _, err := tx.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.1"}); err != nil {
			return err
		}
		if err := tx.InsertConflict(ctx, &inventory.Conflict{IP: "10.0.0.1", Kind: inventory.ConflictIPMACMismatch, State: inventory.ConflictStateDetected}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	d, err := store.GetDeviceByIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, d)

	var count int64
	require.NoError(t, store.DB().Model(&inventory.Conflict{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.NoError(t, store.Ping(ctx))
}

// 冲突回查在 MySQL 下必须是加锁读，才能看到其它事务刚提交的行
func TestStore_ConflictLookupIsLockingRead(t *testing.T) {
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                       "escaner:pw@tcp(127.0.0.1:3306)/escaner_red?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := NewStore(db)
	stmt := store.lockingRead(context.Background()).Where("mac = ?", "AA:BB:CC:00:00:01").First(&inventory.Device{}).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "FROM `equipos`")
	assert.Contains(t, sql, "FOR UPDATE")
}

// SQLite 方言忽略锁子句，回查照常返回冲突行
func TestStore_LockDeviceOnSQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	outcome, err := store.InsertDevice(ctx, &inventory.Device{IP: "10.0.0.9", MAC: strPtr("AA:BB:CC:00:00:09")})
	require.NoError(t, err)
	require.Equal(t, repo.InsertCreated, outcome)

	err = store.Transaction(ctx, func(tx repo.InventoryStore) error {
		s := tx.(*Store)
		byMAC, err := s.lockDevice(ctx, "mac", "AA:BB:CC:00:00:09")
		require.NoError(t, err)
		require.NotNil(t, byMAC)
		assert.Equal(t, "10.0.0.9", byMAC.IP)

		missing, err := s.lockDevice(ctx, "ip", "10.0.0.10")
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}
