// Reconciler 扫描结果对账器
// 职责: 把一批规范化主机合并进设备清单
// 核心逻辑(每台主机一个事务):
// - A. 基于更新前的状态检测身份冲突，只记录不阻断
// - B. 解析厂商/操作系统，按 IP 优先、MAC 兜底的顺序 Upsert 设备
// - C. 关联开放端口与协议目录
// 单台主机失败只回滚该主机，批次继续；存储不可达时整批中止
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"github.com/sirupsen/logrus"
)

// Reconciler 对账器
type Reconciler struct {
	store      repo.InventoryStore
	classifier OSClassifier
	linker     *PortLinker
	detector   *conflictDetector
	now        func() time.Time
}

// Option 对账器选项
type Option func(*Reconciler)

// WithClassifier 替换操作系统分类器
func WithClassifier(classifier OSClassifier) Option {
	return func(r *Reconciler) {
		if classifier != nil {
			r.classifier = classifier
		}
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler 创建对账器
func NewReconciler(store repo.InventoryStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:      store,
		classifier: PassthroughClassifier{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.linker = &PortLinker{now: r.now}
	r.detector = &conflictDetector{now: r.now}
	return r
}

// Process 处理一个批次，返回汇总计数
// 返回 *FatalBatchError 时 summary 为中止前的部分结果
func (r *Reconciler) Process(ctx context.Context, batch *scanModel.Batch) (scanModel.Summary, error) {
	var summary scanModel.Summary
	if batch == nil || len(batch.Hosts) == 0 {
		return summary, nil
	}

	if err := r.store.Ping(ctx); err != nil {
		logger.LogSystemEvent("reconciler", "storage_unreachable", "storage ping failed before batch", logrus.ErrorLevel, map[string]interface{}{
			"error":  err.Error(),
			"hosts":  len(batch.Hosts),
			"subnet": batch.Subnet,
		})
		return summary, &FatalBatchError{Processed: 0, Err: err}
	}

	start := r.now()
	for i := range batch.Hosts {
		host := &batch.Hosts[i]

		if err := ctx.Err(); err != nil {
			return summary, &FatalBatchError{Processed: summary.Processed, Err: err}
		}

		conflicts, err := r.processHost(ctx, host)
		if err != nil {
			logger.LogError(err, "", "", "reconcile_host", "SERVICE", map[string]interface{}{
				"operation": "reconcile_host",
				"ip":        host.IP,
				"mac":       host.MACValue(),
				"hostname":  host.Hostname,
			})

			// 连接类错误再确认一次存储状态
			if IsTransient(err) || errors.Is(err, context.Canceled) {
				if pingErr := r.store.Ping(ctx); pingErr != nil {
					return summary, &FatalBatchError{Processed: summary.Processed, Err: pingErr}
				}
			}
			summary.Errors++
			continue
		}

		summary.Processed++
		summary.Conflicts += conflicts
	}

	result := "success"
	if summary.Errors > 0 {
		result = "partial"
	}
	logger.LogBusinessOperation("reconcile_batch", "reconciler", "", "", result, "scan batch reconciled", map[string]interface{}{
		"subnet":      batch.Subnet,
		"hosts":       len(batch.Hosts),
		"processed":   summary.Processed,
		"conflicts":   summary.Conflicts,
		"errors":      summary.Errors,
		"duration_ms": r.now().Sub(start).Milliseconds(),
	})
	return summary, nil
}

// processHost 在一个事务内完成单台主机的 A/B/C 三步，返回冲突数
func (r *Reconciler) processHost(ctx context.Context, host *scanModel.Host) (int, error) {
	conflicts := 0
	err := r.store.Transaction(ctx, func(tx repo.InventoryStore) error {
		// 更新前的状态
		byIP, err := tx.GetDeviceByIP(ctx, host.IP)
		if err != nil {
			return fmt.Errorf("lookup device by ip failed: %w", err)
		}
		var byMAC *inventory.Device
		if host.MAC != nil {
			byMAC, err = tx.GetDeviceByMAC(ctx, *host.MAC)
			if err != nil {
				return fmt.Errorf("lookup device by mac failed: %w", err)
			}
		}

		// A. 冲突检测
		n, err := r.detector.detect(ctx, tx, host, byIP, byMAC)
		if err != nil {
			return err
		}

		// B. 目录解析与设备 Upsert
		manufacturerID, err := r.resolveManufacturer(ctx, tx, host)
		if err != nil {
			return fmt.Errorf("resolve manufacturer failed: %w", err)
		}
		osName := r.classifier.Classify(host)
		osID, err := r.resolveOperatingSystem(ctx, tx, osName)
		if err != nil {
			return fmt.Errorf("resolve operating system failed: %w", err)
		}

		now := r.now()
		device := &inventory.Device{
			IP:                host.IP,
			MAC:               copyMAC(host.MAC),
			Hostname:          host.Hostname,
			OperatingSystemID: osID,
			ManufacturerID:    manufacturerID,
			TTL:               host.TTL,
			OSHints:           host.OSHints,
			LastSeenAt:        &now,
		}
		deviceID, err := r.upsertDevice(ctx, tx, device, byIP, byMAC, osName)
		if err != nil {
			return err
		}

		// C. 端口关联
		if err := r.linker.Link(ctx, tx, deviceID, host.OpenPorts); err != nil {
			return err
		}

		conflicts = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return conflicts, nil
}

// upsertDevice IP 优先、MAC 兜底
func (r *Reconciler) upsertDevice(ctx context.Context, tx repo.InventoryStore, device *inventory.Device, byIP, byMAC *inventory.Device, osName string) (uint64, error) {
	// 1. IP 已存在: 按 IP 更新
	if byIP != nil {
		if err := r.updateByIP(ctx, tx, device, byIP, byMAC, osName); err != nil {
			return 0, err
		}
		return byIP.ID, nil
	}

	// 2. 尝试插入
	outcome, err := tx.InsertDevice(ctx, device)
	switch outcome {
	case repo.InsertCreated:
		return device.ID, nil

	case repo.InsertConflictOnMAC:
		// 3. MAC 已属于其它 IP 的设备: 设备换了 IP，按 MAC 更新并覆盖 IP
		current, lookupErr := tx.GetDeviceByMAC(ctx, *device.MAC)
		if lookupErr != nil {
			return 0, fmt.Errorf("reload device by mac failed: %w", lookupErr)
		}
		if current == nil {
			return 0, fmt.Errorf("device with mac %s vanished after insert conflict", *device.MAC)
		}
		mergeUnknownFields(device, current, osName)
		if err := tx.UpdateDeviceByMAC(ctx, device); err != nil {
			return 0, fmt.Errorf("update device by mac failed: %w", err)
		}
		logger.LogInfo("device moved to a new ip, updated by mac", "", "", "upsert_device", "SERVICE", map[string]interface{}{
			"operation": "update_device_by_mac",
			"device_id": current.ID,
			"old_ip":    current.IP,
			"new_ip":    device.IP,
			"mac":       device.MACValue(),
		})
		return current.ID, nil

	case repo.InsertConflictOnIP:
		// 并发写入了同一 IP
		current, lookupErr := tx.GetDeviceByIP(ctx, device.IP)
		if lookupErr != nil {
			return 0, fmt.Errorf("reload device by ip failed: %w", lookupErr)
		}
		if current == nil {
			return 0, fmt.Errorf("device with ip %s vanished after insert conflict", device.IP)
		}
		if err := r.updateByIP(ctx, tx, device, current, byMAC, osName); err != nil {
			return 0, err
		}
		return current.ID, nil

	default:
		// 4. 与唯一约束无关的失败
		if err == nil {
			err = errors.New("unknown insert failure")
		}
		return 0, fmt.Errorf("insert device failed: %w", err)
	}
}

// updateByIP 按 IP 更新已存在的设备
// 上报 MAC 已属于另一台设备时保留原 MAC，不抢占唯一键
func (r *Reconciler) updateByIP(ctx context.Context, tx repo.InventoryStore, device, current, byMAC *inventory.Device, osName string) error {
	if device.MAC != nil && byMAC != nil && byMAC.ID != current.ID {
		keepCurrentMAC(device, current)
	}
	mergeUnknownFields(device, current, osName)

	err := tx.UpdateDeviceByIP(ctx, device)
	if err != nil && errors.Is(err, repo.ErrDuplicateKey) && device.MAC != nil && !sameMAC(device.MAC, current.MAC) {
		// 其它事务刚占用了该 MAC
		keepCurrentMAC(device, current)
		err = tx.UpdateDeviceByIP(ctx, device)
	}
	if err != nil {
		return fmt.Errorf("update device by ip failed: %w", err)
	}
	return nil
}

// keepCurrentMAC 保留设备原有的 MAC 与厂商
func keepCurrentMAC(device, current *inventory.Device) {
	logger.LogWarn("reported mac belongs to another device, keeping current mac", "", "", "upsert_device", "SERVICE", map[string]interface{}{
		"operation":    "update_device_by_ip",
		"ip":           device.IP,
		"reported_mac": device.MACValue(),
		"current_mac":  current.MACValue(),
	})
	device.MAC = copyMAC(current.MAC)
	device.ManufacturerID = current.ManufacturerID
}

// mergeUnknownFields 上报缺失的字段沿用现有值
func mergeUnknownFields(device, current *inventory.Device, osName string) {
	if isUnknownHostname(device.Hostname) && !isUnknownHostname(current.Hostname) {
		device.Hostname = current.Hostname
	}
	if device.MAC == nil && current.MAC != nil {
		device.MAC = copyMAC(current.MAC)
		device.ManufacturerID = current.ManufacturerID
	}
	if osName == inventory.UnknownOperatingSystem && current.OperatingSystemID != 0 {
		device.OperatingSystemID = current.OperatingSystemID
	}
	if device.TTL == nil {
		device.TTL = current.TTL
	}
	if device.OSHints == "" {
		device.OSHints = current.OSHints
	}
}

// resolveManufacturer 按 OUI 解析厂商，MAC 缺失时使用未知厂商哨兵
func (r *Reconciler) resolveManufacturer(ctx context.Context, tx repo.InventoryStore, host *scanModel.Host) (uint64, error) {
	if host.MAC == nil {
		return ensureManufacturer(ctx, tx, inventory.UnknownManufacturerOUI, inventory.UnknownManufacturerName)
	}
	oui := utils.OUIFromMAC(*host.MAC)
	name := host.Manufacturer
	if name == "" {
		name = inventory.UnknownManufacturerName
	}
	return ensureManufacturer(ctx, tx, oui, name)
}

// ensureManufacturer 查找厂商，不存在则创建
func ensureManufacturer(ctx context.Context, tx repo.InventoryStore, oui, name string) (uint64, error) {
	existing, err := tx.GetManufacturerByOUI(ctx, oui)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	created := &inventory.Manufacturer{OUI: oui, Name: name}
	if err := tx.CreateManufacturer(ctx, created); err != nil {
		if !errors.Is(err, repo.ErrDuplicateKey) {
			return 0, err
		}
		winner, lookupErr := tx.GetManufacturerByOUI(ctx, oui)
		if lookupErr != nil {
			return 0, lookupErr
		}
		if winner == nil {
			return 0, err
		}
		return winner.ID, nil
	}
	return created.ID, nil
}

// resolveOperatingSystem 精确匹配 -> 子串匹配 -> 创建
func (r *Reconciler) resolveOperatingSystem(ctx context.Context, tx repo.InventoryStore, name string) (uint64, error) {
	if name == "" {
		name = inventory.UnknownOperatingSystem
	}

	exact, err := tx.GetOperatingSystemByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if exact != nil {
		return exact.ID, nil
	}

	if name != inventory.UnknownOperatingSystem {
		similar, err := tx.FindOperatingSystemLike(ctx, name)
		if err != nil {
			return 0, err
		}
		if similar != nil {
			return similar.ID, nil
		}
	}

	created := &inventory.OperatingSystem{Name: name}
	if err := tx.CreateOperatingSystem(ctx, created); err != nil {
		if !errors.Is(err, repo.ErrDuplicateKey) {
			return 0, err
		}
		winner, lookupErr := tx.GetOperatingSystemByName(ctx, name)
		if lookupErr != nil {
			return 0, lookupErr
		}
		if winner == nil {
			return 0, err
		}
		return winner.ID, nil
	}
	return created.ID, nil
}

func copyMAC(mac *string) *string {
	if mac == nil {
		return nil
	}
	v := *mac
	return &v
}

func sameMAC(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
