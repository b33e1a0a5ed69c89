/**
 * 中间件:安全中间件
 * @date: 2025.11.22
 * @description: 定义安全中间件
 * @func:
 *   - GinCORSMiddleware CORS跨域资源共享中间件,Agent 可能从浏览器环境上报
 *   - GinRequestIDMiddleware 请求ID中间件,为每个请求添加唯一的请求ID,方便日志跟踪和调试
 */
package middleware

import (
	"net/http"
	"strings"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	defaultAllowMethods = []string{"GET", "POST", "OPTIONS"}
	defaultAllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Request-ID"}
)

// GinCORSMiddleware CORS跨域资源共享中间件
// 处理跨域请求，设置必要的CORS头部信息
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cors := m.securityConfig.CORS
	methods := cors.AllowMethods
	if len(methods) == 0 {
		methods = defaultAllowMethods
	}
	headers := cors.AllowHeaders
	if len(headers) == 0 {
		headers = defaultAllowHeaders
	}
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(headers, ", ")

	return func(c *gin.Context) {
		if !cors.Enabled {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		allowed := allowedOrigin(cors.AllowOrigins, origin)
		if allowed == "" {
			logrus.WithFields(logrus.Fields{
				"path":      c.Request.URL.Path,
				"operation": "cors_middleware",
				"option":    "origin_not_allowed",
				"func_name": "middleware.security.GinCORSMiddleware",
				"origin":    origin,
			}).Debug("CORS origin not allowed")
		} else {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", "86400")
			if allowed != "*" {
				c.Header("Vary", "Origin")
			}
		}

		// 处理预检请求（OPTIONS方法）
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// allowedOrigin 返回应写入响应头的源，未允许返回空串
// 未配置允许列表时允许任意源
func allowedOrigin(allowList []string, origin string) string {
	if len(allowList) == 0 {
		return "*"
	}
	for _, o := range allowList {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// GinRequestIDMiddleware 请求ID中间件
// 为每个请求生成唯一ID，便于日志追踪和问题排查
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 检查是否已有请求ID（可能来自负载均衡器或代理）
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID, _ = utils.GenerateUUID()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
