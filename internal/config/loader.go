package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置文件
// configPath: 配置文件目录，如果为空则使用默认路径
// env: 环境标识，支持 development, test, production
func LoadConfig(configPath, env string) (*Config, error) {
	// 先加载 .env，已存在的环境变量不会被覆盖
	if err := loadDotEnv(configPath); err != nil {
		return nil, err
	}

	// 设置默认环境
	if env == "" {
		env = getEnvFromEnvironment()
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// 根据环境选择配置文件
	configFile := getConfigFileName(configPath, env)
	v.SetConfigFile(configFile)

	// 设置环境变量前缀
	v.SetEnvPrefix("ESCANER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	GlobalConfig = &config

	return &config, nil
}

// loadDotEnv 加载配置目录和工作目录下的 .env 文件
// .env 文件不存在不算错误
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(configPath, ".env"))
	}
	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	return nil
}

// getEnvFromEnvironment 从环境变量获取环境标识
func getEnvFromEnvironment() string {
	env := os.Getenv("ESCANER_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development" // 默认开发环境
	}
	return env
}

// getDefaultConfigPath 获取默认配置文件路径
func getDefaultConfigPath() string {
	if configPath := os.Getenv("ESCANER_CONFIG_PATH"); configPath != "" {
		return configPath
	}
	return "configs"
}

// getConfigFileName 根据环境获取配置文件名
func getConfigFileName(configPath, env string) string {
	var configFile string

	switch env {
	case "production", "prod":
		configFile = filepath.Join(configPath, "config.prod.yaml")
	case "test", "testing":
		configFile = filepath.Join(configPath, "config.test.yaml")
	default:
		configFile = filepath.Join(configPath, "config.yaml")
	}

	// 检查文件是否存在，如果不存在则使用默认配置文件
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		defaultConfig := filepath.Join(configPath, "config.yaml")
		if _, err := os.Stat(defaultConfig); err == nil {
			return defaultConfig
		}
	}

	return configFile
}

// bindEnvironmentVariables 绑定环境变量
func bindEnvironmentVariables(v *viper.Viper) {
	// 数据库配置
	v.BindEnv("database.driver", "ESCANER_DB_DRIVER")
	v.BindEnv("database.mysql.host", "ESCANER_MYSQL_HOST")
	v.BindEnv("database.mysql.port", "ESCANER_MYSQL_PORT")
	v.BindEnv("database.mysql.username", "ESCANER_MYSQL_USERNAME")
	v.BindEnv("database.mysql.password", "ESCANER_MYSQL_PASSWORD")
	v.BindEnv("database.mysql.database", "ESCANER_MYSQL_DATABASE")
	v.BindEnv("database.sqlite.path", "ESCANER_SQLITE_PATH")

	v.BindEnv("database.redis.enabled", "ESCANER_REDIS_ENABLED")
	v.BindEnv("database.redis.host", "ESCANER_REDIS_HOST")
	v.BindEnv("database.redis.port", "ESCANER_REDIS_PORT")
	v.BindEnv("database.redis.password", "ESCANER_REDIS_PASSWORD")

	// Agent 鉴权
	v.BindEnv("security.agent_auth.enabled", "ESCANER_AGENT_AUTH_ENABLED")
	v.BindEnv("security.agent_auth.secret", "ESCANER_AGENT_SECRET")

	// 服务器配置
	v.BindEnv("server.host", "ESCANER_SERVER_HOST")
	v.BindEnv("server.port", "ESCANER_SERVER_PORT")
	v.BindEnv("server.mode", "ESCANER_SERVER_MODE")

	// 接收配置
	v.BindEnv("ingest.archive_dir", "ESCANER_ARCHIVE_DIR")
	v.BindEnv("ingest.spool.dir", "ESCANER_SPOOL_DIR")

	v.BindEnv("app.environment", "ESCANER_APP_ENVIRONMENT")
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.Mode != "debug" && config.Server.Mode != "release" && config.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	// 验证数据库配置
	validDrivers := []string{"mysql", "sqlite", "memory"}
	if !contains(validDrivers, config.Database.Driver) {
		return fmt.Errorf("invalid database driver: %s", config.Database.Driver)
	}

	if config.Database.Driver == "mysql" {
		if config.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if config.Database.MySQL.Database == "" {
			return fmt.Errorf("mysql database name is required")
		}
	}

	// REPEATABLE-READ 下普通 SELECT 读的是事务快照，唯一键冲突后回查不到并发提交的行
	validIsolations := []string{"READ-COMMITTED", "SERIALIZABLE"}
	if config.Database.Driver == "mysql" && !contains(validIsolations, config.Database.MySQL.TransactionIsolation) {
		return fmt.Errorf("invalid mysql transaction isolation: %s", config.Database.MySQL.TransactionIsolation)
	}

	if config.Database.Driver == "sqlite" && config.Database.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	if config.Database.Redis.Enabled && config.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required when redis is enabled")
	}

	// Agent 鉴权
	if config.Security.AgentAuth.Enabled && len(config.Security.AgentAuth.Secret) < 32 {
		return fmt.Errorf("agent auth secret must be at least 32 characters long")
	}

	// 验证日志配置
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, config.Log.Level) {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Log.Format) {
		return fmt.Errorf("invalid log format: %s", config.Log.Format)
	}

	validLogOutputs := []string{"stdout", "stderr", "file"}
	if !contains(validLogOutputs, config.Log.Output) {
		return fmt.Errorf("invalid log output: %s", config.Log.Output)
	}

	if config.Log.Output == "file" && config.Log.FilePath == "" {
		return fmt.Errorf("log file path is required when output is file")
	}

	if config.Ingest.MaxDevices < 0 {
		return fmt.Errorf("invalid ingest max_devices: %d", config.Ingest.MaxDevices)
	}

	if config.Ingest.Spool.Enabled && strings.TrimSpace(config.Ingest.Spool.Dir) == "" {
		return fmt.Errorf("ingest.spool.dir is required when spool is enabled")
	}

	return nil
}

// applyDefaults 填充配置文件中未给出的默认值
func applyDefaults(config *Config) {
	if config == nil {
		return
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "mysql"
	}
	if config.Database.MySQL.TransactionIsolation == "" {
		config.Database.MySQL.TransactionIsolation = "READ-COMMITTED"
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Server.MaxBodyBytes <= 0 {
		config.Server.MaxBodyBytes = 10 << 20
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "json"
	}
	if config.Log.Output == "" {
		config.Log.Output = "stdout"
	}
	if config.Ingest.Spool.Debounce <= 0 {
		config.Ingest.Spool.Debounce = 500 * time.Millisecond
	}
	if config.Catalog.CacheTTL <= 0 {
		config.Catalog.CacheTTL = 24 * time.Hour
	}
	if config.Security.AgentAuth.Issuer == "" {
		config.Security.AgentAuth.Issuer = "escaner-red"
	}
	if config.Security.AgentAuth.TokenExpire <= 0 {
		config.Security.AgentAuth.TokenExpire = 30 * 24 * time.Hour
	}
}

// contains 检查切片是否包含指定元素
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}

// GetEnv 获取当前环境
func GetEnv() string {
	if GlobalConfig != nil {
		return GlobalConfig.App.Environment
	}
	return getEnvFromEnvironment()
}
