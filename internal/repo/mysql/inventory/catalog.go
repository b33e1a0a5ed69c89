package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"

	"gorm.io/gorm"
)

// -----------------------------------------------------------------------------
// 目录: 厂商 / 操作系统 / 协议
// -----------------------------------------------------------------------------

// GetManufacturerByOUI 根据OUI获取厂商
func (r *Store) GetManufacturerByOUI(ctx context.Context, oui string) (*inventory.Manufacturer, error) {
	var m inventory.Manufacturer
	err := r.db.WithContext(ctx).Where("oui_mac = ?", oui).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "get_manufacturer_by_oui", "REPO", map[string]interface{}{
			"operation": "get_manufacturer_by_oui",
			"oui":       oui,
		})
		return nil, err
	}
	return &m, nil
}

// CreateManufacturer 创建厂商
func (r *Store) CreateManufacturer(ctx context.Context, manufacturer *inventory.Manufacturer) error {
	if manufacturer == nil {
		return errors.New("manufacturer is nil")
	}
	return r.create(ctx, manufacturer, "create_manufacturer", map[string]interface{}{
		"oui": manufacturer.OUI,
	})
}

// GetOperatingSystemByName 按名称精确查找操作系统
func (r *Store) GetOperatingSystemByName(ctx context.Context, name string) (*inventory.OperatingSystem, error) {
	var os inventory.OperatingSystem
	err := r.db.WithContext(ctx).Where("nombre = ?", name).First(&os).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "get_os_by_name", "REPO", map[string]interface{}{
			"operation": "get_os_by_name",
			"name":      name,
		})
		return nil, err
	}
	return &os, nil
}

// FindOperatingSystemLike 查找名称包含 fragment 的操作系统，取最短名称
func (r *Store) FindOperatingSystemLike(ctx context.Context, fragment string) (*inventory.OperatingSystem, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	var os inventory.OperatingSystem
	// '!' 作为转义符在 MySQL 与 SQLite 下行为一致
	err := r.db.WithContext(ctx).
		Where("nombre LIKE ? ESCAPE '!'", "%"+escapeLike(fragment)+"%").
		Order("LENGTH(nombre) ASC").
		Order("id_so ASC").
		First(&os).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "find_os_like", "REPO", map[string]interface{}{
			"operation": "find_os_like",
			"fragment":  fragment,
		})
		return nil, err
	}
	return &os, nil
}

// CreateOperatingSystem 创建操作系统
func (r *Store) CreateOperatingSystem(ctx context.Context, os *inventory.OperatingSystem) error {
	if os == nil {
		return errors.New("operating system is nil")
	}
	return r.create(ctx, os, "create_os", map[string]interface{}{
		"name": os.Name,
	})
}

// GetProtocolByPort 根据端口号获取协议
func (r *Store) GetProtocolByPort(ctx context.Context, port int) (*inventory.Protocol, error) {
	var p inventory.Protocol
	err := r.db.WithContext(ctx).Where("numero = ?", port).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.LogError(err, "", "", "get_protocol_by_port", "REPO", map[string]interface{}{
			"operation": "get_protocol_by_port",
			"port":      port,
		})
		return nil, err
	}
	return &p, nil
}

// CreateProtocol 创建协议
func (r *Store) CreateProtocol(ctx context.Context, protocol *inventory.Protocol) error {
	if protocol == nil {
		return errors.New("protocol is nil")
	}
	return r.create(ctx, protocol, "create_protocol", map[string]interface{}{
		"port": protocol.Port,
	})
}

// create 通用插入，唯一约束冲突翻译为 repo.ErrDuplicateKey 且不记错误日志
func (r *Store) create(ctx context.Context, value interface{}, operation string, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).Create(value).Error
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return translateError(err)
	}
	fields["operation"] = operation
	logger.LogError(err, "", "", operation, "REPO", fields)
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
