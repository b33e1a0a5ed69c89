/**
 * 扫描处理器层:扫描结果上报
 * @date: 2025.11.22
 * @description: Agent 以 POST 上报扫描结果，调用摄入服务完成规范化与对账
 * @func:
 *   - Receive 400 校验失败 / 413 报文过大 / 500 存储不可用 / 200 返回统计
 */
package scan

import (
	"errors"
	"io"
	"net/http"

	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"
	"github.com/HectorPOsuna/escaner-red/internal/service/ingest"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReceiveHandler 扫描结果上报处理器
type ReceiveHandler struct {
	ingestor     ingest.ScanIngestor
	maxBodyBytes int64
}

// NewReceiveHandler 创建上报处理器，maxBodyBytes<=0 表示不限制
func NewReceiveHandler(ingestor ingest.ScanIngestor, maxBodyBytes int64) *ReceiveHandler {
	return &ReceiveHandler{
		ingestor:     ingestor,
		maxBodyBytes: maxBodyBytes,
	}
}

// Receive 接收扫描结果
func (h *ReceiveHandler) Receive(c *gin.Context) {
	clientIP := utils.GetClientIP(c)
	requestID := c.GetString("request_id")
	agentID := c.GetString("agent_id")

	body := c.Request.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodyBytes)
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, scanModel.ReceiveResponse{
				Success: false,
				Message: "request body too large",
			})
			return
		}
		logger.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"operation":  "receive_scan",
			"option":     "readBody",
			"func_name":  "handler.scan.receive.Receive",
			"client_ip":  clientIP,
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("读取请求体失败")
		c.JSON(http.StatusBadRequest, scanModel.ReceiveResponse{
			Success: false,
			Message: "failed to read request body",
		})
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), &ingest.Request{
		Payload:   payload,
		Source:    ingest.SourceHTTP,
		RequestID: requestID,
		ClientIP:  clientIP,
		AgentID:   agentID,
	})
	if err != nil {
		var verr *scan.ValidationError
		if errors.As(err, &verr) {
			problems := verr.Problems
			if len(problems) == 0 {
				problems = []string{verr.Message}
			}
			c.JSON(http.StatusBadRequest, scanModel.ReceiveResponse{
				Success: false,
				Message: verr.Message,
				Errors:  problems,
			})
			return
		}

		logger.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"operation":  "receive_scan",
			"option":     "ingestor.Ingest",
			"func_name":  "handler.scan.receive.Receive",
			"client_ip":  clientIP,
			"request_id": requestID,
			"agent_id":   agentID,
			"fatal":      scan.IsFatalBatchError(err),
			"error":      err.Error(),
		}).Error("扫描结果处理失败")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, scanModel.ReceiveResponse{
			Success: false,
			Message: "scan results could not be stored",
		})
		return
	}

	summary := result.Summary
	c.JSON(http.StatusOK, scanModel.ReceiveResponse{
		Success: true,
		Message: "scan results processed",
		Summary: &summary,
		Subnet:  result.Subnet,
		Errors:  result.Problems,
	})
}
