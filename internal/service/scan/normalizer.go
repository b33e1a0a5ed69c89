// Normalizer 上报报文规范化器
// 职责: Agent 报文 -> scan.Batch
// 规则:
// - 设备列表必须非空 (Devices，离线导出文件可用 hosts)
// - 每条必须有合法 IPv4/IPv6，错误逐条收集，不在第一条错误处停止
// - MAC 可选，格式错误记为校验错误并丢弃该 MAC，主机保留
// - OpenPorts 支持 "80,443" 字符串、数字数组、{port,protocol} 对象数组
// - 主机名缺省为 Desconocido，OS/TTL/OSHints 原样透传
package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"
)

const (
	minPort = 1
	maxPort = 65535
)

// Normalizer 报文规范化器
type Normalizer struct {
	maxDevices int
	now        func() time.Time
}

// NewNormalizer 创建规范化器，maxDevices <= 0 表示不限制
func NewNormalizer(maxDevices int) *Normalizer {
	return &Normalizer{
		maxDevices: maxDevices,
		now:        time.Now,
	}
}

// Normalize 解析原始 JSON 报文
func (n *Normalizer) Normalize(payload []byte) (*scanModel.Batch, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, &ValidationError{Message: ErrEmptyDeviceList.Error()}
	}

	var report scanModel.Report
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, &ValidationError{
			Message:  "invalid JSON payload",
			Problems: []string{err.Error()},
		}
	}
	return n.NormalizeReport(&report)
}

// NormalizeReport 规范化已解码的报文
// 存在校验问题时同时返回尽力解析出的批次和 *ValidationError，由调用方决定是否整批拒绝
func (n *Normalizer) NormalizeReport(report *scanModel.Report) (*scanModel.Batch, error) {
	if report == nil {
		return nil, &ValidationError{Message: ErrEmptyDeviceList.Error()}
	}

	entries := report.Devices
	if len(entries) == 0 {
		entries = report.Hosts
	}
	if len(entries) == 0 {
		return nil, &ValidationError{Message: ErrEmptyDeviceList.Error()}
	}
	if n.maxDevices > 0 && len(entries) > n.maxDevices {
		return nil, &ValidationError{
			Message:  "too many devices",
			Problems: []string{fmt.Sprintf("report has %d devices, limit is %d", len(entries), n.maxDevices)},
			Rejected: len(entries),
		}
	}

	batch := &scanModel.Batch{
		ScannedAt: n.now(),
		Hosts:     make([]scanModel.Host, 0, len(entries)),
	}
	verr := &ValidationError{Message: "invalid device entries"}

	for i, raw := range entries {
		host, ok := normalizeEntry(i, raw, verr)
		if !ok {
			verr.Rejected++
			continue
		}
		if batch.Subnet == "" {
			batch.Subnet = utils.InferSubnet24(host.IP)
		}
		batch.Hosts = append(batch.Hosts, host)
	}

	if !verr.empty() {
		return batch, verr
	}
	return batch, nil
}

// normalizeEntry 规范化单个条目，IP 无效时返回 false
func normalizeEntry(index int, raw json.RawMessage, verr *ValidationError) (scanModel.Host, bool) {
	var entry scanModel.DeviceEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		verr.add("device #%d: entry is not an object", index)
		return scanModel.Host{}, false
	}

	ipText, ok := jsonString(entry.IP)
	if !ok || strings.TrimSpace(ipText) == "" {
		verr.add("device #%d: IP is required", index)
		return scanModel.Host{}, false
	}
	ip, err := utils.CanonicalHostIP(ipText)
	if err != nil {
		verr.add("device #%d: IP '%s' is not valid", index, ipText)
		return scanModel.Host{}, false
	}

	host := scanModel.Host{
		IP:        ip,
		Hostname:  inventory.UnknownHostname,
		OpenPorts: []scanModel.OpenPort{},
	}

	// MAC
	if macText, present := jsonString(entry.MAC); present && strings.TrimSpace(macText) != "" {
		mac, err := utils.NormalizeMAC(macText)
		switch {
		case err != nil:
			verr.add("device #%d: MAC '%s' is not valid", index, macText)
		case utils.IsPlaceholderMAC(mac):
			// 占位 MAC 视为缺失
		default:
			host.MAC = &mac
		}
	} else if !present && !isNull(entry.MAC) {
		verr.add("device #%d: MAC must be a string", index)
	}

	if name, ok := jsonString(entry.Hostname); ok && strings.TrimSpace(name) != "" {
		host.Hostname = strings.TrimSpace(name)
	}

	portsRaw := entry.OpenPorts
	if isNull(portsRaw) {
		portsRaw = entry.OpenPortsAlt
	}
	host.OpenPorts = parseOpenPorts(portsRaw)

	if osText, ok := jsonString(entry.OS); ok {
		host.OSRaw = strings.TrimSpace(osText)
	}
	if ttl, ok := jsonInt(entry.TTL); ok {
		host.TTL = &ttl
	}
	host.OSHints = parseHints(entry.OSHints)
	if vendor, ok := jsonString(entry.Manufacturer); ok {
		host.Manufacturer = strings.TrimSpace(vendor)
	}

	return host, true
}

// parseOpenPorts 解析开放端口，非法与越界端口跳过，同端口只保留第一条
func parseOpenPorts(raw json.RawMessage) []scanModel.OpenPort {
	ports := make([]scanModel.OpenPort, 0)
	if isNull(raw) {
		return ports
	}
	seen := make(map[int]struct{})
	add := func(port int, protocol string) {
		if port < minPort || port > maxPort {
			return
		}
		if _, dup := seen[port]; dup {
			return
		}
		seen[port] = struct{}{}
		protocol = strings.TrimSpace(protocol)
		if protocol == "" {
			protocol = inventory.UnknownProtocolName
		}
		ports = append(ports, scanModel.OpenPort{Port: port, Protocol: protocol})
	}

	// "80, 443,3306"
	if text, ok := jsonString(raw); ok {
		for _, token := range strings.Split(text, ",") {
			if port, err := strconv.Atoi(strings.TrimSpace(token)); err == nil {
				add(port, "")
			}
		}
		return ports
	}

	// 单个数字
	if port, ok := jsonInt(raw); ok {
		add(port, "")
		return ports
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return ports
	}
	for _, item := range items {
		if port, ok := jsonInt(item); ok {
			add(port, "")
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		port, ok := jsonInt(lookupField(obj, "port", "number", "numero"))
		if !ok {
			continue
		}
		protocol, _ := jsonString(lookupField(obj, "protocol", "service", "name"))
		add(port, protocol)
	}
	return ports
}

// parseHints 支持字符串或字符串数组，数组以 | 连接
func parseHints(raw json.RawMessage) string {
	if text, ok := jsonString(raw); ok {
		return strings.TrimSpace(text)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			parts = append(parts, item)
		}
	}
	return strings.Join(parts, "|")
}

// lookupField 不区分大小写取第一个存在的字段
func lookupField(obj map[string]json.RawMessage, names ...string) json.RawMessage {
	for _, name := range names {
		for key, value := range obj {
			if strings.EqualFold(key, name) && !isNull(value) {
				return value
			}
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// jsonString 解析 JSON 字符串
func jsonString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// jsonInt 解析整数，接受数字或数字字符串
func jsonInt(raw json.RawMessage) (int, bool) {
	if isNull(raw) {
		return 0, false
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(num.String()))
	if err != nil {
		return 0, false
	}
	return v, true
}
