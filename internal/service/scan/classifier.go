package scan

import (
	"strings"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
)

// OSClassifier 根据上报信息得出操作系统显示名称
type OSClassifier interface {
	Classify(host *scanModel.Host) string
}

// OSClassifierFunc 函数适配器
type OSClassifierFunc func(host *scanModel.Host) string

// Classify 实现 OSClassifier
func (f OSClassifierFunc) Classify(host *scanModel.Host) string {
	return f(host)
}

// PassthroughClassifier 直接使用 Agent 上报的 OS 字符串
type PassthroughClassifier struct{}

// Classify 上报为空时返回 Unknown
func (PassthroughClassifier) Classify(host *scanModel.Host) string {
	if host == nil {
		return inventory.UnknownOperatingSystem
	}
	if name := strings.TrimSpace(host.OSRaw); name != "" {
		return name
	}
	return inventory.UnknownOperatingSystem
}
