package inventory

import (
	"context"
	"errors"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// -----------------------------------------------------------------------------
// Device (设备) 数据访问
// -----------------------------------------------------------------------------

// GetDeviceByIP 根据IP获取设备
func (r *Store) GetDeviceByIP(ctx context.Context, ip string) (*inventory.Device, error) {
	var device inventory.Device
	err := r.db.WithContext(ctx).Where("ip = ?", ip).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "get_device_by_ip", "REPO", map[string]interface{}{
			"operation": "get_device_by_ip",
			"ip":        ip,
		})
		return nil, err
	}
	return &device, nil
}

// GetDeviceByMAC 根据MAC获取设备
func (r *Store) GetDeviceByMAC(ctx context.Context, mac string) (*inventory.Device, error) {
	var device inventory.Device
	err := r.db.WithContext(ctx).Where("mac = ?", mac).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "get_device_by_mac", "REPO", map[string]interface{}{
			"operation": "get_device_by_mac",
			"mac":       mac,
		})
		return nil, err
	}
	return &device, nil
}

// InsertDevice 插入设备
// 唯一约束冲突时按 MAC、IP 顺序加锁回查，确定是哪个约束被触发
func (r *Store) InsertDevice(ctx context.Context, device *inventory.Device) (repo.InsertOutcome, error) {
	if device == nil {
		return repo.InsertFailed, errors.New("device is nil")
	}

	err := r.db.WithContext(ctx).Create(device).Error
	if err == nil {
		return repo.InsertCreated, nil
	}

	if !isDuplicateKey(err) {
		logger.LogError(err, "", "", "insert_device", "REPO", map[string]interface{}{
			"operation": "insert_device",
			"ip":        device.IP,
			"mac":       device.MACValue(),
		})
		return repo.InsertFailed, err
	}

	device.ID = 0
	if device.MAC != nil {
		existing, lookupErr := r.lockDevice(ctx, "mac", *device.MAC)
		if lookupErr != nil {
			return repo.InsertFailed, lookupErr
		}
		if existing != nil {
			return repo.InsertConflictOnMAC, nil
		}
	}

	existing, lookupErr := r.lockDevice(ctx, "ip", device.IP)
	if lookupErr != nil {
		return repo.InsertFailed, lookupErr
	}
	if existing != nil {
		return repo.InsertConflictOnIP, nil
	}

	// 约束报错但找不到冲突行
	return repo.InsertFailed, translateError(err)
}

// lockDevice SELECT ... FOR UPDATE 读取冲突行，读到的是最新提交版本
// SQLite 方言会忽略 FOR 子句
func (r *Store) lockDevice(ctx context.Context, column, value string) (*inventory.Device, error) {
	var device inventory.Device
	err := r.lockingRead(ctx).Where(column+" = ?", value).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "lock_device", "REPO", map[string]interface{}{
			"operation": "lock_device",
			"column":    column,
			"value":     value,
		})
		return nil, err
	}
	return &device, nil
}

func (r *Store) lockingRead(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// UpdateDeviceByIP 按IP更新设备
func (r *Store) UpdateDeviceByIP(ctx context.Context, device *inventory.Device) error {
	if device == nil || device.IP == "" {
		return errors.New("invalid device or ip")
	}
	err := r.db.WithContext(ctx).Model(&inventory.Device{}).
		Where("ip = ?", device.IP).
		Updates(map[string]interface{}{
			"hostname":         device.Hostname,
			"mac":              device.MAC,
			"id_so":            device.OperatingSystemID,
			"fabricante_id":    device.ManufacturerID,
			"ttl":              device.TTL,
			"os_hints":         device.OSHints,
			"ultima_deteccion": device.LastSeenAt,
		}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return translateError(err)
		}
		logger.LogError(err, "", "", "update_device_by_ip", "REPO", map[string]interface{}{
			"operation": "update_device_by_ip",
			"ip":        device.IP,
		})
		return err
	}
	return nil
}

// UpdateDeviceByMAC 按MAC更新设备(IP随之覆盖)
func (r *Store) UpdateDeviceByMAC(ctx context.Context, device *inventory.Device) error {
	if device == nil || device.MAC == nil {
		return errors.New("invalid device or mac")
	}
	err := r.db.WithContext(ctx).Model(&inventory.Device{}).
		Where("mac = ?", *device.MAC).
		Updates(map[string]interface{}{
			"ip":               device.IP,
			"hostname":         device.Hostname,
			"id_so":            device.OperatingSystemID,
			"fabricante_id":    device.ManufacturerID,
			"ttl":              device.TTL,
			"os_hints":         device.OSHints,
			"ultima_deteccion": device.LastSeenAt,
		}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return translateError(err)
		}
		logger.LogError(err, "", "", "update_device_by_mac", "REPO", map[string]interface{}{
			"operation": "update_device_by_mac",
			"mac":       *device.MAC,
		})
		return err
	}
	return nil
}
