package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
)

// PortLinker 端口/协议关联器
// 未知端口自动建档为 otro，端口使用记录只插入或刷新
type PortLinker struct {
	now func() time.Time
}

// NewPortLinker 创建端口关联器
func NewPortLinker() *PortLinker {
	return &PortLinker{now: time.Now}
}

// Link 为设备关联全部开放端口
func (l *PortLinker) Link(ctx context.Context, tx repo.InventoryStore, deviceID uint64, ports []scanModel.OpenPort) error {
	seenAt := l.now()
	for _, port := range ports {
		protocol, err := l.resolveProtocol(ctx, tx, port)
		if err != nil {
			return fmt.Errorf("resolve protocol for port %d failed: %w", port.Port, err)
		}
		if err := l.upsertUsage(ctx, tx, deviceID, protocol.ID, port.Port, seenAt); err != nil {
			return fmt.Errorf("upsert usage for port %d failed: %w", port.Port, err)
		}
	}
	return nil
}

// resolveProtocol 按端口号查找协议，不存在则创建
// 并发创建冲突时回读胜出的记录
func (l *PortLinker) resolveProtocol(ctx context.Context, tx repo.InventoryStore, port scanModel.OpenPort) (*inventory.Protocol, error) {
	existing, err := tx.GetProtocolByPort(ctx, port.Port)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := port.Protocol
	if name == "" {
		name = inventory.UnknownProtocolName
	}
	created := &inventory.Protocol{
		Port:        port.Port,
		Name:        name,
		Description: inventory.AutoDetectedDescription,
		Category:    inventory.CategoryOther,
	}
	if err := tx.CreateProtocol(ctx, created); err != nil {
		if !errors.Is(err, repo.ErrDuplicateKey) {
			return nil, err
		}
		winner, lookupErr := tx.GetProtocolByPort(ctx, port.Port)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner == nil {
			return nil, err
		}
		return winner, nil
	}

	logger.LogInfo("protocol auto-registered", "", "", "link_ports", "SERVICE", map[string]interface{}{
		"operation": "create_protocol",
		"port":      port.Port,
		"name":      name,
		"category":  string(inventory.CategoryOther),
	})
	return created, nil
}

// upsertUsage 插入或刷新端口使用记录
func (l *PortLinker) upsertUsage(ctx context.Context, tx repo.InventoryStore, deviceID, protocolID uint64, port int, seenAt time.Time) error {
	usage := &inventory.ProtocolUsage{
		DeviceID:     deviceID,
		ProtocolID:   protocolID,
		DetectedPort: port,
		LastSeenAt:   seenAt,
		State:        inventory.UsageStateActive,
	}

	existing, err := tx.GetProtocolUsage(ctx, deviceID, protocolID, port)
	if err != nil {
		return err
	}
	if existing != nil {
		return tx.TouchProtocolUsage(ctx, usage)
	}

	if err := tx.CreateProtocolUsage(ctx, usage); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			return tx.TouchProtocolUsage(ctx, usage)
		}
		return err
	}
	return nil
}
