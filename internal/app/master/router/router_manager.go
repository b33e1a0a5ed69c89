/**
 * 路由:路由管理器
 * @date: 2025.11.22
 * @description: 路由管理器，包含Router结构体、NewRouter函数和SetupRoutes主函数
 * @func:
 */
package router

import (
	"github.com/HectorPOsuna/escaner-red/internal/app/master/middleware"
	"github.com/HectorPOsuna/escaner-red/internal/app/master/setup"
	"github.com/HectorPOsuna/escaner-red/internal/config"
	scanHandler "github.com/HectorPOsuna/escaner-red/internal/handler/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/auth"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager
	receiveHandler    *scanHandler.ReceiveHandler
	store             repo.InventoryStore // 就绪检查
}

// NewRouter 创建路由管理器实例
func NewRouter(cfg *config.Config, store repo.InventoryStore, scanModule *setup.ScanModule) *Router {
	var agentJWT *auth.AgentJWTManager
	if cfg.Security.AgentAuth.Enabled {
		agentJWT = auth.NewAgentJWTManager(cfg.Security.AgentAuth.Secret, cfg.Security.AgentAuth.Issuer, cfg.Security.AgentAuth.TokenExpire)
	}

	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	}

	return &Router{
		config:            cfg,
		engine:            gin.New(),
		middlewareManager: middleware.NewMiddlewareManager(agentJWT, &cfg.Security),
		receiveHandler:    scanModule.ReceiveHandler,
		store:             store,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes() {
	// 全局中间件: 恢复 -> 请求ID -> 访问日志 -> CORS
	r.engine.Use(gin.Recovery())
	r.engine.Use(r.middlewareManager.GinRequestIDMiddleware())
	r.engine.Use(r.middlewareManager.GinLoggingMiddleware())
	r.engine.Use(r.middlewareManager.GinCORSMiddleware())

	api := r.engine.Group("/api")
	r.setupHealthRoutes(api)
	r.setupScanRoutes(api)
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
