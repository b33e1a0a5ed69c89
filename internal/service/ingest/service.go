// ScanIngestor 扫描结果摄入服务
// 职责: 供 HTTP / 文件导入 / 落盘目录调用
// 1. 归档原始报文
// 2. 规范化与校验(严格模式下任一问题拒绝整批)
// 3. 对账入库
package ingest

import (
	"context"
	"errors"
	"time"

	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"
)

// 报文来源
const (
	SourceHTTP  = "http"
	SourceFile  = "file"
	SourceSpool = "spool"
)

// Request 一次摄入请求
type Request struct {
	Payload   []byte
	Source    string
	RequestID string
	ClientIP  string
	AgentID   string
}

// Result 摄入结果
type Result struct {
	Summary    scanModel.Summary
	Subnet     string
	Problems   []string // 校验问题(宽松模式下也会返回)
	ArchiveKey string
}

// ScanIngestor 扫描结果摄入服务接口
type ScanIngestor interface {
	Ingest(ctx context.Context, req *Request) (*Result, error)
}

type scanIngestor struct {
	normalizer *scan.Normalizer
	reconciler *scan.Reconciler
	archiver   EvidenceArchiver
	strict     bool
	now        func() time.Time
}

// NewScanIngestor 创建摄入服务，archiver 可为 nil(不归档)
func NewScanIngestor(normalizer *scan.Normalizer, reconciler *scan.Reconciler, archiver EvidenceArchiver, strict bool) ScanIngestor {
	return &scanIngestor{
		normalizer: normalizer,
		reconciler: reconciler,
		archiver:   archiver,
		strict:     strict,
		now:        time.Now,
	}
}

// Ingest 处理一份原始报文
// 返回 *scan.ValidationError 表示整批被拒绝，*scan.FatalBatchError 表示存储不可用
func (s *scanIngestor) Ingest(ctx context.Context, req *Request) (*Result, error) {
	result := &Result{}
	loggerFields := map[string]interface{}{
		"source":   req.Source,
		"agent_id": req.AgentID,
		"bytes":    len(req.Payload),
	}

	// 1. 归档原始报文，失败只记录日志
	if s.archiver != nil && len(req.Payload) > 0 {
		key, err := NewArchiveKey(s.now())
		if err == nil {
			err = s.archiver.Archive(ctx, key, req.Payload)
		}
		if err != nil {
			logger.LogError(err, req.RequestID, req.ClientIP, "ingest", "ARCHIVER", loggerFields)
		} else {
			result.ArchiveKey = key
			loggerFields["archive_key"] = key
		}
	}

	// 2. 规范化
	batch, err := s.normalizer.Normalize(req.Payload)
	if err != nil {
		var verr *scan.ValidationError
		if !errors.As(err, &verr) {
			return result, err
		}
		result.Problems = verr.Problems
		if len(result.Problems) == 0 {
			result.Problems = []string{verr.Message}
		}
		if s.strict || batch == nil || len(batch.Hosts) == 0 {
			logger.LogBusinessOperation("ingest_scan", req.Source, req.ClientIP, req.RequestID, "failed", verr.Message, mergeFields(loggerFields, map[string]interface{}{
				"problems": len(result.Problems),
			}))
			return result, verr
		}
		// 宽松模式: 丢弃的条目计入错误数
		result.Summary.Errors += verr.Rejected
		logger.LogWarn("scan report accepted with invalid entries", req.RequestID, req.ClientIP, "ingest", req.Source, mergeFields(loggerFields, map[string]interface{}{
			"problems": len(verr.Problems),
			"rejected": verr.Rejected,
		}))
	}
	result.Subnet = batch.Subnet

	// 3. 对账
	summary, err := s.reconciler.Process(ctx, batch)
	result.Summary.Add(summary)
	if err != nil {
		logger.LogBusinessError(err, req.RequestID, req.ClientIP, "ingest", "ingest_scan", loggerFields)
		return result, err
	}

	logger.LogBusinessOperation("ingest_scan", req.Source, req.ClientIP, req.RequestID, "success", "scan report ingested", mergeFields(loggerFields, map[string]interface{}{
		"subnet":    result.Subnet,
		"hosts":     len(batch.Hosts),
		"processed": result.Summary.Processed,
		"conflicts": result.Summary.Conflicts,
		"errors":    result.Summary.Errors,
	}))
	return result, nil
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
