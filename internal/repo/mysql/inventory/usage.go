package inventory

import (
	"context"
	"errors"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"

	"gorm.io/gorm"
)

// -----------------------------------------------------------------------------
// ProtocolUsage (端口使用) 与 Conflict (冲突日志)
// -----------------------------------------------------------------------------

// GetProtocolUsage 按 (设备, 协议, 端口) 获取使用记录
func (r *Store) GetProtocolUsage(ctx context.Context, deviceID, protocolID uint64, port int) (*inventory.ProtocolUsage, error) {
	var usage inventory.ProtocolUsage
	err := r.db.WithContext(ctx).
		Where("id_equipo = ? AND id_protocolo = ? AND puerto_detectado = ?", deviceID, protocolID, port).
		First(&usage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "get_protocol_usage", "REPO", map[string]interface{}{
			"operation":   "get_protocol_usage",
			"device_id":   deviceID,
			"protocol_id": protocolID,
			"port":        port,
		})
		return nil, err
	}
	return &usage, nil
}

// CreateProtocolUsage 创建使用记录
func (r *Store) CreateProtocolUsage(ctx context.Context, usage *inventory.ProtocolUsage) error {
	if usage == nil {
		return errors.New("protocol usage is nil")
	}
	return r.create(ctx, usage, "create_protocol_usage", map[string]interface{}{
		"device_id":   usage.DeviceID,
		"protocol_id": usage.ProtocolID,
		"port":        usage.DetectedPort,
	})
}

// TouchProtocolUsage 刷新使用记录的最后发现时间与状态
func (r *Store) TouchProtocolUsage(ctx context.Context, usage *inventory.ProtocolUsage) error {
	if usage == nil {
		return errors.New("protocol usage is nil")
	}
	err := r.db.WithContext(ctx).Model(&inventory.ProtocolUsage{}).
		Where("id_equipo = ? AND id_protocolo = ? AND puerto_detectado = ?", usage.DeviceID, usage.ProtocolID, usage.DetectedPort).
		Updates(map[string]interface{}{
			"fecha_hora": usage.LastSeenAt,
			"estado":     usage.State,
		}).Error
	if err != nil {
		logger.LogError(err, "", "", "touch_protocol_usage", "REPO", map[string]interface{}{
			"operation":   "touch_protocol_usage",
			"device_id":   usage.DeviceID,
			"protocol_id": usage.ProtocolID,
			"port":        usage.DetectedPort,
		})
		return err
	}
	return nil
}

// InsertConflict 追加冲突记录
func (r *Store) InsertConflict(ctx context.Context, conflict *inventory.Conflict) error {
	if conflict == nil {
		return errors.New("conflict is nil")
	}
	return r.create(ctx, conflict, "insert_conflict", map[string]interface{}{
		"ip":   conflict.IP,
		"kind": string(conflict.Kind),
	})
}
