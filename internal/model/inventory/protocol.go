package inventory

import (
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/basemodel"
)

// ProtocolCategory 协议分类(封闭集合)
type ProtocolCategory string

const (
	CategorySecure     ProtocolCategory = "seguro"
	CategoryInsecure   ProtocolCategory = "inseguro"
	CategoryEssential  ProtocolCategory = "esencial"
	CategoryDatabase   ProtocolCategory = "base_de_datos"
	CategoryMail       ProtocolCategory = "correo"
	CategoryWeb        ProtocolCategory = "web"
	CategoryManagement ProtocolCategory = "administracion"
	CategoryOther      ProtocolCategory = "otro"
)

// Valid 判断分类是否在封闭集合内
func (c ProtocolCategory) Valid() bool {
	switch c {
	case CategorySecure, CategoryInsecure, CategoryEssential, CategoryDatabase,
		CategoryMail, CategoryWeb, CategoryManagement, CategoryOther:
		return true
	}
	return false
}

const (
	// AutoDetectedDescription 自动建档协议的描述
	AutoDetectedDescription = "Auto-detected"
	// UnknownProtocolName 上报未给出协议名时使用
	UnknownProtocolName = "Unknown"
	// UsageStateActive 端口使用记录状态
	UsageStateActive = "activo"
)

// Protocol 协议目录，按端口号唯一
type Protocol struct {
	ID          uint64           `json:"id" gorm:"column:id_protocolo;primaryKey;autoIncrement;comment:协议ID"`
	Port        int              `json:"numero" gorm:"column:numero;uniqueIndex:uk_protocolos_numero;not null;comment:端口号"`
	Name        string           `json:"nombre" gorm:"column:nombre;size:100;comment:协议名称"`
	Description string           `json:"descripcion" gorm:"column:descripcion;size:255;comment:描述"`
	Category    ProtocolCategory `json:"categoria" gorm:"column:categoria;size:32;default:otro;comment:分类"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
}

// TableName 定义数据库表名
func (Protocol) TableName() string {
	return "protocolos"
}

// ProtocolUsage 设备端口使用记录
// (设备, 协议, 端口) 唯一；只插入或刷新，从不删除
type ProtocolUsage struct {
	basemodel.BaseModel

	DeviceID     uint64    `json:"id_equipo" gorm:"column:id_equipo;uniqueIndex:uk_uso_equipo_protocolo_puerto,priority:1;not null;comment:设备ID"`
	ProtocolID   uint64    `json:"id_protocolo" gorm:"column:id_protocolo;uniqueIndex:uk_uso_equipo_protocolo_puerto,priority:2;not null;comment:协议ID"`
	DetectedPort int       `json:"puerto_detectado" gorm:"column:puerto_detectado;uniqueIndex:uk_uso_equipo_protocolo_puerto,priority:3;not null;comment:检测到的端口"`
	LastSeenAt   time.Time `json:"fecha_hora" gorm:"column:fecha_hora;comment:最后发现时间"`
	State        string    `json:"estado" gorm:"column:estado;size:20;default:activo;comment:状态"`
}

// TableName 定义数据库表名
func (ProtocolUsage) TableName() string {
	return "protocolos_usados"
}
