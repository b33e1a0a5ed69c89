package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config 应用配置结构体 [这里的字段和配置文件中一级字段保持一致，否则会没有值]
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`     // 服务器配置
	Database DatabaseConfig `yaml:"database" mapstructure:"database"` // 数据库配置
	Log      LogConfig      `yaml:"log" mapstructure:"log"`           // 日志配置
	Security SecurityConfig `yaml:"security" mapstructure:"security"` // 安全配置
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`     // 扫描结果接收配置
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`   // 目录(厂商/协议)配置
	App      AppConfig      `yaml:"app" mapstructure:"app"`           // 应用配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`                         // 服务器主机地址
	Port           int           `yaml:"port" mapstructure:"port"`                         // 服务器端口
	Mode           string        `yaml:"mode" mapstructure:"mode"`                         // 运行模式: debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 读取超时时间
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 写入超时时间
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // 空闲超时时间
	MaxHeaderBytes int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"` // 最大请求头字节数
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`     // 上报请求体最大字节数
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string       `yaml:"driver" mapstructure:"driver"` // 存储驱动: mysql, sqlite, memory
	MySQL  MySQLConfig  `yaml:"mysql" mapstructure:"mysql"`   // MySQL配置
	SQLite SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"` // SQLite配置(单机模式)
	Redis  RedisConfig  `yaml:"redis" mapstructure:"redis"`   // Redis配置
}

// MySQLConfig MySQL数据库配置
type MySQLConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`                             // 数据库主机
	Port            int           `yaml:"port" mapstructure:"port"`                             // 数据库端口
	Username        string        `yaml:"username" mapstructure:"username"`                     // 用户名
	Password        string        `yaml:"password" mapstructure:"password"`                     // 密码
	Database        string        `yaml:"database" mapstructure:"database"`                     // 数据库名
	Charset         string        `yaml:"charset" mapstructure:"charset"`                       // 字符集
	ParseTime       bool          `yaml:"parse_time" mapstructure:"parse_time"`                 // 是否解析时间
	Loc             string        `yaml:"loc" mapstructure:"loc"`                               // 时区
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`         // 最大空闲连接数
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`         // 最大打开连接数
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`   // 连接最大生存时间
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"` // 连接最大空闲时间
	LogLevel        string        `yaml:"log_level" mapstructure:"log_level"`                   // 日志级别
	// 事务隔离级别，默认 READ-COMMITTED，唯一键冲突后的回查需要读到其它事务刚提交的行
	TransactionIsolation string `yaml:"transaction_isolation" mapstructure:"transaction_isolation"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`           // 数据库文件路径, ":memory:" 表示内存库
	LogLevel string `yaml:"log_level" mapstructure:"log_level"` // 日志级别
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`               // 是否启用Redis(目录缓存)
	Host         string        `yaml:"host" mapstructure:"host"`                     // Redis主机
	Port         int           `yaml:"port" mapstructure:"port"`                     // Redis端口
	Password     string        `yaml:"password" mapstructure:"password"`             // Redis密码
	Database     int           `yaml:"database" mapstructure:"database"`             // Redis数据库索引
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`           // 连接池大小
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"` // 最小空闲连接数
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`     // 连接超时
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`     // 读取超时
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`   // 写入超时
	PoolTimeout  time.Duration `yaml:"pool_timeout" mapstructure:"pool_timeout"`     // 连接池超时
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`     // 空闲超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式: json, text
	Output     string `yaml:"output" mapstructure:"output"`           // 输出方式: stdout, stderr, file
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 保留的日志文件数量
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩日志文件
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AgentAuth AgentAuthConfig `yaml:"agent_auth" mapstructure:"agent_auth"` // Agent 上报鉴权
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`             // CORS配置
}

// AgentAuthConfig Agent 上报鉴权配置
type AgentAuthConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`           // 是否启用 Agent JWT 鉴权
	Secret      string        `yaml:"secret" mapstructure:"secret"`             // 签名密钥
	Issuer      string        `yaml:"issuer" mapstructure:"issuer"`             // 签发者
	TokenExpire time.Duration `yaml:"token_expire" mapstructure:"token_expire"` // 令牌有效期
}

// CORSConfig CORS配置
type CORSConfig struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`             // 是否启用CORS
	AllowOrigins []string `yaml:"allow_origins" mapstructure:"allow_origins"` // 允许的源, 为空表示 *
	AllowMethods []string `yaml:"allow_methods" mapstructure:"allow_methods"` // 允许的方法
	AllowHeaders []string `yaml:"allow_headers" mapstructure:"allow_headers"` // 允许的请求头
}

// IngestConfig 扫描结果接收配置
type IngestConfig struct {
	StrictValidation bool        `yaml:"strict_validation" mapstructure:"strict_validation"` // 任一条目校验失败则拒绝整批
	MaxDevices       int         `yaml:"max_devices" mapstructure:"max_devices"`             // 单批最大设备数, 0 表示不限制
	ArchiveDir       string      `yaml:"archive_dir" mapstructure:"archive_dir"`             // 原始报文归档目录, 为空不归档
	Spool            SpoolConfig `yaml:"spool" mapstructure:"spool"`                         // 落盘目录监听
}

// SpoolConfig 落盘目录监听配置
type SpoolConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`   // 服务模式下是否同时监听目录
	Dir      string        `yaml:"dir" mapstructure:"dir"`           // 监听目录
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"` // 防抖时间
}

// CatalogConfig 目录配置
type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"` // 目录缓存过期时间(需启用Redis)
	OUIFile  string        `yaml:"oui_file" mapstructure:"oui_file"`   // IEEE oui.txt 默认路径
	IANAFile string        `yaml:"iana_file" mapstructure:"iana_file"` // IANA 端口表默认路径
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`               // 应用名称
	Version     string `yaml:"version" mapstructure:"version"`         // 应用版本
	Environment string `yaml:"environment" mapstructure:"environment"` // 运行环境
	Debug       bool   `yaml:"debug" mapstructure:"debug"`             // 是否调试模式
	Timezone    string `yaml:"timezone" mapstructure:"timezone"`       // 时区
}

// GetAddress 获取服务器完整地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment 判断是否为开发环境
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction 判断是否为生产环境
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// IsTest 判断是否为测试环境
func (a *AppConfig) IsTest() bool {
	return a.Environment == "test"
}

// GetMySQLDSN 获取MySQL数据源名称
func (m *MySQLConfig) GetMySQLDSN() string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		m.Username, m.Password, m.Host, m.Port, m.Database, m.Charset, m.ParseTime, m.Loc)
	if m.TransactionIsolation != "" {
		// 驱动把未知参数作为会话变量下发，值需带引号
		dsn += "&transaction_isolation=" + url.QueryEscape("'"+m.TransactionIsolation+"'")
	}
	return dsn
}

// GetRedisAddress 获取Redis地址
func (r *RedisConfig) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
