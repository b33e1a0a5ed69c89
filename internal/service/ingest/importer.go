// FileImporter 离线报文导入
// Agent 无法直连时会把报文写成 scan_results.json，由定时任务或命令行导入
// 导入成功改名为 .processed，校验失败改名为 .rejected，存储不可用时保留原文件等待重试
package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"
)

const (
	ProcessedSuffix = ".processed"
	RejectedSuffix  = ".rejected"
)

// FileImporter 文件导入器
type FileImporter struct {
	ingestor ScanIngestor
	source   string
}

// NewFileImporter 创建文件导入器
func NewFileImporter(ingestor ScanIngestor, source string) *FileImporter {
	if source == "" {
		source = SourceFile
	}
	return &FileImporter{ingestor: ingestor, source: source}
}

// ImportFile 导入单个报文文件
func (f *FileImporter) ImportFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := f.ingestor.Ingest(ctx, &Request{Payload: data, Source: f.source})
	switch {
	case err == nil:
		if renameErr := os.Rename(path, path+ProcessedSuffix); renameErr != nil {
			return result, fmt.Errorf("imported but failed to mark %s: %w", path, renameErr)
		}
	case scan.IsValidationError(err):
		if renameErr := os.Rename(path, path+RejectedSuffix); renameErr != nil {
			logger.LogError(renameErr, "", "", path, "IMPORT", map[string]interface{}{
				"operation": "mark_rejected",
			})
		}
		return result, err
	default:
		return result, err
	}

	logger.LogInfo("scan file imported", "", "", path, "IMPORT", map[string]interface{}{
		"operation": "import_file",
		"processed": result.Summary.Processed,
		"conflicts": result.Summary.Conflicts,
		"errors":    result.Summary.Errors,
	})
	return result, nil
}
