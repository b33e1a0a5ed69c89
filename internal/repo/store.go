/**
 * 仓库层:设备清单存储接口
 * @date: 2025.11.20
 * @description: 对账服务依赖的存储契约，mysql/sqlite(gorm) 与内存实现共用
 * @func: 只做按键读取与插入/更新，不包含任何业务判断
 */
package repo

import (
	"context"
	"errors"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
)

// ErrDuplicateKey 唯一约束冲突，各实现把驱动错误翻译为该错误
var ErrDuplicateKey = errors.New("duplicate key")

// InsertOutcome 设备插入结果
type InsertOutcome int

const (
	// InsertFailed 非约束类错误，伴随返回的 error
	InsertFailed InsertOutcome = iota
	// InsertCreated 插入成功，设备ID已回填
	InsertCreated
	// InsertConflictOnMAC MAC 唯一约束冲突
	InsertConflictOnMAC
	// InsertConflictOnIP IP 唯一约束冲突(并发写入同一IP)
	InsertConflictOnIP
)

// String 返回结果名称，用于日志
func (o InsertOutcome) String() string {
	switch o {
	case InsertCreated:
		return "created"
	case InsertConflictOnMAC:
		return "conflict_on_mac"
	case InsertConflictOnIP:
		return "conflict_on_ip"
	default:
		return "failed"
	}
}

// InventoryStore 设备清单存储
// Get* 方法未找到时返回 (nil, nil)
type InventoryStore interface {
	// Transaction 在一个事务内执行 fn，fn 返回错误则整体回滚
	Transaction(ctx context.Context, fn func(tx InventoryStore) error) error
	// Ping 检查存储是否可用
	Ping(ctx context.Context) error

	GetDeviceByIP(ctx context.Context, ip string) (*inventory.Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*inventory.Device, error)
	// InsertDevice 插入设备，成功时回填 device.ID
	InsertDevice(ctx context.Context, device *inventory.Device) (InsertOutcome, error)
	// UpdateDeviceByIP 按 IP 覆盖 hostname/mac/id_so/fabricante_id/ttl/os_hints/ultima_deteccion
	UpdateDeviceByIP(ctx context.Context, device *inventory.Device) error
	// UpdateDeviceByMAC 按 MAC 覆盖 ip/hostname/id_so/fabricante_id/ttl/os_hints/ultima_deteccion
	UpdateDeviceByMAC(ctx context.Context, device *inventory.Device) error

	GetManufacturerByOUI(ctx context.Context, oui string) (*inventory.Manufacturer, error)
	// CreateManufacturer OUI 已存在时返回 ErrDuplicateKey
	CreateManufacturer(ctx context.Context, manufacturer *inventory.Manufacturer) error

	GetOperatingSystemByName(ctx context.Context, name string) (*inventory.OperatingSystem, error)
	// FindOperatingSystemLike 返回名称包含 fragment 的最短记录
	FindOperatingSystemLike(ctx context.Context, fragment string) (*inventory.OperatingSystem, error)
	// CreateOperatingSystem 名称已存在时返回 ErrDuplicateKey
	CreateOperatingSystem(ctx context.Context, os *inventory.OperatingSystem) error

	GetProtocolByPort(ctx context.Context, port int) (*inventory.Protocol, error)
	// CreateProtocol 端口已存在时返回 ErrDuplicateKey
	CreateProtocol(ctx context.Context, protocol *inventory.Protocol) error

	GetProtocolUsage(ctx context.Context, deviceID, protocolID uint64, port int) (*inventory.ProtocolUsage, error)
	// CreateProtocolUsage 组合键已存在时返回 ErrDuplicateKey
	CreateProtocolUsage(ctx context.Context, usage *inventory.ProtocolUsage) error
	// TouchProtocolUsage 刷新 fecha_hora 与 estado
	TouchProtocolUsage(ctx context.Context, usage *inventory.ProtocolUsage) error

	// InsertConflict 追加冲突记录
	InsertConflict(ctx context.Context, conflict *inventory.Conflict) error
}
