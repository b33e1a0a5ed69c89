package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
)

// conflictDetector 基于更新前的状态检测身份冲突
// 只追加冲突记录，不阻止后续持久化
type conflictDetector struct {
	now func() time.Time
}

// detect 返回写入的冲突条数
// byIP / byMAC 为更新前按 IP、MAC 查到的设备，可为 nil
func (d *conflictDetector) detect(ctx context.Context, tx repo.InventoryStore, host *scanModel.Host, byIP, byMAC *inventory.Device) (int, error) {
	var conflicts []*inventory.Conflict

	// 1. 同 IP
	if byIP != nil {
		switch {
		case byIP.MAC != nil && host.MAC != nil && *byIP.MAC != *host.MAC:
			conflicts = append(conflicts, d.newConflict(host, inventory.ConflictIPMACMismatch,
				fmt.Sprintf("Conflicto de IP: La IP %s está asignada a %s (%s) pero fue detectada en %s (%s)",
					host.IP, byIP.Hostname, *byIP.MAC, host.Hostname, *host.MAC)))
		case hostnameChanged(byIP.Hostname, host.Hostname) && !macConfirms(byIP, host):
			conflicts = append(conflicts, d.newConflict(host, inventory.ConflictIPHostnameMismatch,
				fmt.Sprintf("Conflicto de Hostname en IP: La IP %s cambió de %s a %s sin validación de MAC.",
					host.IP, byIP.Hostname, host.Hostname)))
		}
	}

	// 2. 同 MAC，且与 IP 命中的不是同一行(同一行的改名已由 MAC 确认)
	if host.MAC != nil && byMAC != nil && (byIP == nil || byIP.ID != byMAC.ID) &&
		hostnameChanged(byMAC.Hostname, host.Hostname) {
		conflicts = append(conflicts, d.newConflict(host, inventory.ConflictMACHostnameMismatch,
			fmt.Sprintf("Conflicto de MAC: El dispositivo %s cambió de nombre de %s a %s",
				*host.MAC, byMAC.Hostname, host.Hostname)))
	}

	for _, c := range conflicts {
		if err := tx.InsertConflict(ctx, c); err != nil {
			return 0, fmt.Errorf("insert conflict %s failed: %w", c.Kind, err)
		}
		logger.LogWarn("identity conflict detected", "", "", "reconcile", "SERVICE", map[string]interface{}{
			"operation": "detect_conflict",
			"kind":      string(c.Kind),
			"ip":        host.IP,
			"mac":       host.MACValue(),
			"hostname":  host.Hostname,
		})
	}
	return len(conflicts), nil
}

func (d *conflictDetector) newConflict(host *scanModel.Host, kind inventory.ConflictKind, description string) *inventory.Conflict {
	var mac *string
	if host.MAC != nil {
		v := *host.MAC
		mac = &v
	}
	return &inventory.Conflict{
		IP:                  host.IP,
		MAC:                 mac,
		ConflictingHostname: host.Hostname,
		Kind:                kind,
		Description:         description,
		State:               inventory.ConflictStateDetected,
		DetectedAt:          d.now(),
	}
}

// hostnameChanged 主机名是否发生变化
// 任一侧为 Desconocido 时不视为变化
func hostnameChanged(existing, incoming string) bool {
	if isUnknownHostname(existing) || isUnknownHostname(incoming) {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(incoming))
}

func isUnknownHostname(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, inventory.UnknownHostname)
}

// macConfirms 双方 MAC 都存在且相同
func macConfirms(existing *inventory.Device, host *scanModel.Host) bool {
	return existing.MAC != nil && host.MAC != nil && *existing.MAC == *host.MAC
}
