package inventory

import "time"

// ConflictKind 身份冲突类型
type ConflictKind string

const (
	// ConflictIPMACMismatch 同一IP出现了不同的MAC
	ConflictIPMACMismatch ConflictKind = "IP_MAC_MISMATCH"
	// ConflictIPHostnameMismatch 同一IP出现了不同的主机名，且MAC无法证明是同一设备
	ConflictIPHostnameMismatch ConflictKind = "IP_HOSTNAME_MISMATCH"
	// ConflictMACHostnameMismatch 同一MAC出现了不同的主机名
	ConflictMACHostnameMismatch ConflictKind = "MAC_HOSTNAME_MISMATCH"
)

// ConflictStateDetected 冲突记录创建时的状态
const ConflictStateDetected = "detectado"

// Conflict 冲突日志，只追加，创建后不再修改
type Conflict struct {
	ID                  uint64       `json:"id" gorm:"column:id_conflicto;primaryKey;autoIncrement;comment:冲突ID"`
	IP                  string       `json:"ip" gorm:"column:ip;size:45;index;comment:上报IP"`
	MAC                 *string      `json:"mac" gorm:"column:mac;size:17;index;comment:上报MAC"`
	ConflictingHostname string       `json:"hostname_conflictivo" gorm:"column:hostname_conflictivo;size:255;comment:上报主机名"`
	Kind                ConflictKind `json:"tipo" gorm:"column:tipo;size:32;index;comment:冲突类型"`
	Description         string       `json:"descripcion" gorm:"column:descripcion;size:512;comment:冲突描述"`
	State               string       `json:"estado" gorm:"column:estado;size:20;default:detectado;comment:状态"`
	DetectedAt          time.Time    `json:"fecha_detectado" gorm:"column:fecha_detectado;index;comment:检测时间"`
}

// TableName 定义数据库表名
func (Conflict) TableName() string {
	return "conflictos"
}

// AllModels 返回需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Manufacturer{},
		&OperatingSystem{},
		&Protocol{},
		&Device{},
		&ProtocolUsage{},
		&Conflict{},
	}
}
