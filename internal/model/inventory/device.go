/**
 * 模型:设备清单
 * @date: 2025.11.20
 * @description: 设备(equipos)、厂商(fabricantes)、操作系统(sistemas_operativos)表结构
 * @note: 表名和主键列名沿用现有库结构，避免迁移已有数据
 */
package inventory

import "time"

// 哨兵值
const (
	// UnknownHostname 上报未给出主机名时使用
	UnknownHostname = "Desconocido"
	// UnknownManufacturerOUI 未知厂商占位 OUI
	UnknownManufacturerOUI = "000000"
	// UnknownManufacturerName 未知厂商名称，也作为新建厂商的占位名称
	UnknownManufacturerName = "Desconocido"
	// UnknownOperatingSystem 无法识别操作系统时的名称
	UnknownOperatingSystem = "Unknown"
)

// Device 设备表
// ip 与 mac 各自唯一；mac 可为空(NULL 不参与唯一约束)
type Device struct {
	ID                uint64     `json:"id" gorm:"column:id_equipo;primaryKey;autoIncrement;comment:设备ID"`
	Hostname          string     `json:"hostname" gorm:"column:hostname;size:255;comment:主机名"`
	IP                string     `json:"ip" gorm:"column:ip;size:45;uniqueIndex:uk_equipos_ip;not null;comment:IP地址(IPv4/IPv6)"`
	MAC               *string    `json:"mac" gorm:"column:mac;size:17;uniqueIndex:uk_equipos_mac;comment:MAC地址(大写冒号分隔)"`
	OperatingSystemID uint64     `json:"id_so" gorm:"column:id_so;index;comment:操作系统ID"`
	ManufacturerID    uint64     `json:"fabricante_id" gorm:"column:fabricante_id;index;comment:厂商ID"`
	TTL               *int       `json:"ttl" gorm:"column:ttl;comment:探测到的TTL"`
	OSHints           string     `json:"os_hints" gorm:"column:os_hints;size:512;comment:Agent上报的系统特征"`
	LastSeenAt        *time.Time `json:"ultima_deteccion" gorm:"column:ultima_deteccion;index;comment:最后发现时间"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime;comment:更新时间"`
}

// TableName 定义数据库表名
func (Device) TableName() string {
	return "equipos"
}

// MACValue 返回MAC字符串，空MAC返回空串
func (d *Device) MACValue() string {
	if d == nil || d.MAC == nil {
		return ""
	}
	return *d.MAC
}

// Manufacturer 厂商表，按 OUI 唯一
type Manufacturer struct {
	ID        uint64    `json:"id" gorm:"column:id_fabricante;primaryKey;autoIncrement;comment:厂商ID"`
	Name      string    `json:"nombre" gorm:"column:nombre;size:255;not null;comment:厂商名称"`
	OUI       string    `json:"oui_mac" gorm:"column:oui_mac;size:6;uniqueIndex:uk_fabricantes_oui;not null;comment:OUI(6位十六进制)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
}

// TableName 定义数据库表名
func (Manufacturer) TableName() string {
	return "fabricantes"
}

// OperatingSystem 操作系统表，只追加
type OperatingSystem struct {
	ID        uint64    `json:"id" gorm:"column:id_so;primaryKey;autoIncrement;comment:操作系统ID"`
	Name      string    `json:"nombre" gorm:"column:nombre;size:191;uniqueIndex:uk_so_nombre;not null;comment:操作系统名称"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
}

// TableName 定义数据库表名
func (OperatingSystem) TableName() string {
	return "sistemas_operativos"
}
