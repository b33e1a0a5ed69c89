// EvidenceArchiver 原始报文归档器
// 职责: 将 Agent 上报的原始 JSON 落盘保存，作为冲突排查与审计依据
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"
)

// EvidenceArchiver 原始报文归档器接口
type EvidenceArchiver interface {
	// Archive 归档原始报文
	// key: 相对路径 (如: 2025/11/20/<uuid>.json)
	Archive(ctx context.Context, key string, data []byte) error
}

// FileArchiver 本地文件系统归档器
type FileArchiver struct {
	basePath string
}

// NewFileArchiver 创建本地文件系统归档器
// basePath: 基础存储路径 (如: data/archive)
func NewFileArchiver(basePath string) *FileArchiver {
	return &FileArchiver{
		basePath: basePath,
	}
}

// Archive 归档原始报文
func (a *FileArchiver) Archive(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(a.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// 先写临时文件再改名，避免留下半截报文
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// NewArchiveKey 生成归档 Key: yyyy/mm/dd/<uuid>.json
func NewArchiveKey(at time.Time) (string, error) {
	id, err := utils.GenerateSimpleUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate archive id: %w", err)
	}
	return fmt.Sprintf("%s/%s.json", at.Format("2006/01/02"), id), nil
}
