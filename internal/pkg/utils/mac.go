package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// macPattern 接受冒号或连字符分隔的 6 组十六进制
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// 占位 MAC: ARP 未完成或广播条目
const (
	zeroMAC      = "00:00:00:00:00:00"
	broadcastMAC = "FF:FF:FF:FF:FF:FF"
)

// NormalizeMAC 校验并规范化MAC地址为大写冒号分隔形式 (AA:BB:CC:DD:EE:FF)
func NormalizeMAC(input string) (string, error) {
	s := strings.TrimSpace(input)
	if !macPattern.MatchString(s) {
		return "", fmt.Errorf("invalid mac %q", input)
	}
	return strings.ToUpper(strings.ReplaceAll(s, "-", ":")), nil
}

// IsPlaceholderMAC 判断规范化后的MAC是否为全零或广播地址
func IsPlaceholderMAC(mac string) bool {
	return mac == zeroMAC || mac == broadcastMAC
}

// OUIFromMAC 取规范化MAC的前三个字节作为 OUI，返回 6 位大写十六进制
func OUIFromMAC(mac string) string {
	hex := strings.ReplaceAll(strings.ReplaceAll(mac, ":", ""), "-", "")
	if len(hex) < 6 {
		return ""
	}
	return strings.ToUpper(hex[:6])
}
