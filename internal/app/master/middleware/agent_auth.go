// agent_auth.go
// 该文件定义 Agent 专属的鉴权中间件，用于处理 Agent 上报接口的鉴权
// 不同于用户系统的鉴权逻辑，此中间件仅用于和 Agent 进行交互，仅需验证 JWT Token
package middleware

import (
	"net/http"

	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/auth"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GinAgentAuthMiddleware Agent 鉴权中间件
// 未启用鉴权时直接放行；启用后校验 Authorization: Bearer <token>，并把 AgentID 注入上下文
func (m *MiddlewareManager) GinAgentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.securityConfig.AgentAuth.Enabled || m.agentJWT == nil {
			c.Next()
			return
		}

		token := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		claims, err := m.agentJWT.ValidateToken(token)
		if err != nil {
			logger.LogAudit("agent_auth", c.Request.URL.Path, "denied", c.GetString("client_ip"), c.GetString("request_id"), map[string]interface{}{
				"error": err.Error(),
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, scanModel.ReceiveResponse{
				Success: false,
				Message: "unauthorized agent",
			})
			return
		}

		c.Set("agent_id", claims.AgentID)
		c.Set("agent_hostname", claims.Hostname)
		c.Next()
	}
}
