/**
 * 模型:扫描上报
 * @date: 2025.11.20
 * @description: Agent 上报报文(宽松结构)与规范化后的主机记录
 */
package scan

import (
	"encoding/json"
	"time"
)

// Report Agent 上报的原始报文
// 字段类型不可信，全部保留为 RawMessage，由规范化器统一解析
// hosts 为离线导出文件(scan_results.json)的旧格式
type Report struct {
	Devices []json.RawMessage `json:"Devices"`
	Hosts   []json.RawMessage `json:"hosts"`
}

// DeviceEntry 单个设备条目
// encoding/json 字段名大小写不敏感，ip/IP/Ip 均可匹配
type DeviceEntry struct {
	IP           json.RawMessage `json:"IP"`
	MAC          json.RawMessage `json:"MAC"`
	Hostname     json.RawMessage `json:"Hostname"`
	OpenPorts    json.RawMessage `json:"OpenPorts"`
	OpenPortsAlt json.RawMessage `json:"open_ports"`
	OS           json.RawMessage `json:"OS"`
	TTL          json.RawMessage `json:"TTL"`
	OSHints      json.RawMessage `json:"OSHints"`
	Manufacturer json.RawMessage `json:"Manufacturer"`
}

// OpenPort 规范化后的开放端口
type OpenPort struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// Host 规范化后的主机记录
type Host struct {
	IP           string     `json:"ip"`
	MAC          *string    `json:"mac,omitempty"` // 大写冒号分隔，缺失为 nil
	Hostname     string     `json:"hostname"`
	OpenPorts    []OpenPort `json:"open_ports"`
	OSRaw        string     `json:"os_raw,omitempty"`
	TTL          *int       `json:"ttl,omitempty"`
	OSHints      string     `json:"os_hints,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
}

// MACValue 返回MAC字符串，缺失返回空串
func (h *Host) MACValue() string {
	if h == nil || h.MAC == nil {
		return ""
	}
	return *h.MAC
}

// Batch 一次上报规范化后的主机批次
type Batch struct {
	Subnet    string    `json:"subnet,omitempty"` // 第一条IPv4所在 /24
	ScannedAt time.Time `json:"scanned_at"`
	Hosts     []Host    `json:"hosts"`
}
