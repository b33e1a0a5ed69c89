package router

import "github.com/gin-gonic/gin"

// setupScanRoutes 扫描结果上报路由
// /api/receive 为旧版 Agent 使用的路径
func (r *Router) setupScanRoutes(api *gin.RouterGroup) {
	agentAuth := r.middlewareManager.GinAgentAuthMiddleware()

	api.POST("/receive", agentAuth, r.receiveHandler.Receive)

	v1 := api.Group("/v1")
	v1.POST("/scans", agentAuth, r.receiveHandler.Receive)
}
