package middleware

import (
	"github.com/HectorPOsuna/escaner-red/internal/config"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/auth"
)

// MiddlewareManager 中间件管理器
// 负责管理所有Gin框架的中间件，提供统一的中间件接口
type MiddlewareManager struct {
	agentJWT       *auth.AgentJWTManager  // Agent 令牌校验，未启用鉴权时为 nil
	securityConfig *config.SecurityConfig // 安全配置，用于中间件配置
}

// NewMiddlewareManager 创建中间件管理器
// 参数:
//   - agentJWT: Agent 令牌管理器，可为 nil
//   - securityConfig: 安全配置实例
//
// 返回: 中间件管理器实例
func NewMiddlewareManager(agentJWT *auth.AgentJWTManager, securityConfig *config.SecurityConfig) *MiddlewareManager {
	if securityConfig == nil {
		securityConfig = &config.SecurityConfig{}
	}
	return &MiddlewareManager{
		agentJWT:       agentJWT,
		securityConfig: securityConfig,
	}
}
