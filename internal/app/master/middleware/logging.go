/**
 * 中间件:日志相关中间件
 * @date: 2025.11.22
 * @description: 定义日志中间件
 * @func:
 *   - GinLoggingMiddleware Gin日志中间件[客户端IP存储到Gin上下文,供后续使用]
 */
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// GinLoggingMiddleware Gin日志中间件
// 记录所有HTTP请求的访问日志和错误日志
// 使用方式: router.Use(middlewareManager.GinLoggingMiddleware())
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// 标准化后的客户端IP
		clientIP := utils.GetClientIP(c)
		c.Set("client_ip", clientIP)

		c.Next()

		requestID := c.GetString("request_id")
		agentID := c.GetString("agent_id")
		logger.LogAccessRequest(c, start, requestID, agentID)

		// 5xx 额外记错误日志，4xx 由业务层记录
		statusCode := c.Writer.Status()
		if statusCode >= http.StatusInternalServerError {
			errorMsg := http.StatusText(statusCode)
			if errs := c.Errors; len(errs) > 0 {
				errorMsg = errs.String()
			}
			logger.LogError(fmt.Errorf("HTTP %d: %s", statusCode, errorMsg), requestID, clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
				"operation":   "http_request",
				"status_code": statusCode,
				"agent_id":    agentID,
				"duration":    time.Since(start).Milliseconds(),
			})
		}
	}
}
