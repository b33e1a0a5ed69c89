/**
 * 仓库层:设备清单(内存)
 * @date: 2025.11.21
 * @description: repo.InventoryStore 的内存实现(适合单实例/测试)，唯一约束语义与 mysql 实现保持一致
 * @func:单纯数据访问,不应该包含业务逻辑
 * @note: 事务为串行执行，回滚通过快照恢复
 */
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
)

// usageKey ProtocolUsage 组合唯一键
type usageKey struct {
	deviceID   uint64
	protocolID uint64
	port       int
}

// inventoryState 全部表数据
type inventoryState struct {
	devices       map[uint64]inventory.Device
	manufacturers map[uint64]inventory.Manufacturer
	systems       map[uint64]inventory.OperatingSystem
	protocols     map[uint64]inventory.Protocol
	usages        map[usageKey]inventory.ProtocolUsage
	conflicts     []inventory.Conflict
	seq           uint64
}

func newInventoryState() *inventoryState {
	return &inventoryState{
		devices:       make(map[uint64]inventory.Device),
		manufacturers: make(map[uint64]inventory.Manufacturer),
		systems:       make(map[uint64]inventory.OperatingSystem),
		protocols:     make(map[uint64]inventory.Protocol),
		usages:        make(map[usageKey]inventory.ProtocolUsage),
	}
}

// clone 深拷贝，用于事务快照
func (st *inventoryState) clone() *inventoryState {
	c := newInventoryState()
	for k, v := range st.devices {
		c.devices[k] = copyDevice(v)
	}
	for k, v := range st.manufacturers {
		c.manufacturers[k] = v
	}
	for k, v := range st.systems {
		c.systems[k] = v
	}
	for k, v := range st.protocols {
		c.protocols[k] = v
	}
	for k, v := range st.usages {
		c.usages[k] = v
	}
	c.conflicts = make([]inventory.Conflict, len(st.conflicts))
	for i, v := range st.conflicts {
		c.conflicts[i] = copyConflict(v)
	}
	c.seq = st.seq
	return c
}

func (st *inventoryState) nextID() uint64 {
	st.seq++
	return st.seq
}

// InventoryStore 内存设备清单存储
type InventoryStore struct {
	state *inventoryState
	lock  sync.Locker
	inTx  bool
	now   func() time.Time
}

// NewInventoryStore 创建内存设备清单存储实例
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{
		state: newInventoryState(),
		lock:  &sync.Mutex{},
		now:   time.Now,
	}
}

var _ repo.InventoryStore = (*InventoryStore)(nil)

// nopLocker 事务内已持有外层锁
type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// Transaction 串行执行事务，fn 返回错误时恢复到事务前快照
func (s *InventoryStore) Transaction(ctx context.Context, fn func(tx repo.InventoryStore) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot := s.state.clone()
	tx := &InventoryStore{state: s.state, lock: nopLocker{}, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

// Ping 内存存储始终可用
func (s *InventoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// -----------------------------------------------------------------------------
// Device
// -----------------------------------------------------------------------------

func (s *InventoryStore) GetDeviceByIP(ctx context.Context, ip string) (*inventory.Device, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if d, ok := s.findDeviceByIP(ip); ok {
		out := copyDevice(d)
		return &out, nil
	}
	return nil, nil
}

func (s *InventoryStore) GetDeviceByMAC(ctx context.Context, mac string) (*inventory.Device, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if d, ok := s.findDeviceByMAC(mac); ok {
		out := copyDevice(d)
		return &out, nil
	}
	return nil, nil
}

// InsertDevice 插入设备，MAC 冲突优先于 IP 冲突判断
func (s *InventoryStore) InsertDevice(ctx context.Context, device *inventory.Device) (repo.InsertOutcome, error) {
	if device == nil {
		return repo.InsertFailed, errors.New("device is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if device.MAC != nil {
		if _, ok := s.findDeviceByMAC(*device.MAC); ok {
			return repo.InsertConflictOnMAC, nil
		}
	}
	if _, ok := s.findDeviceByIP(device.IP); ok {
		return repo.InsertConflictOnIP, nil
	}

	now := s.now()
	device.ID = s.state.nextID()
	device.CreatedAt = now
	device.UpdatedAt = now
	s.state.devices[device.ID] = copyDevice(*device)
	return repo.InsertCreated, nil
}

func (s *InventoryStore) UpdateDeviceByIP(ctx context.Context, device *inventory.Device) error {
	if device == nil || device.IP == "" {
		return errors.New("invalid device or ip")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	current, ok := s.findDeviceByIP(device.IP)
	if !ok {
		return nil
	}
	if device.MAC != nil {
		if owner, taken := s.findDeviceByMAC(*device.MAC); taken && owner.ID != current.ID {
			return fmt.Errorf("%w: mac %s", repo.ErrDuplicateKey, *device.MAC)
		}
	}

	current.Hostname = device.Hostname
	current.MAC = copyString(device.MAC)
	current.OperatingSystemID = device.OperatingSystemID
	current.ManufacturerID = device.ManufacturerID
	current.TTL = copyInt(device.TTL)
	current.OSHints = device.OSHints
	current.LastSeenAt = copyTime(device.LastSeenAt)
	current.UpdatedAt = s.now()
	s.state.devices[current.ID] = current
	return nil
}

func (s *InventoryStore) UpdateDeviceByMAC(ctx context.Context, device *inventory.Device) error {
	if device == nil || device.MAC == nil {
		return errors.New("invalid device or mac")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	current, ok := s.findDeviceByMAC(*device.MAC)
	if !ok {
		return nil
	}
	if owner, taken := s.findDeviceByIP(device.IP); taken && owner.ID != current.ID {
		return fmt.Errorf("%w: ip %s", repo.ErrDuplicateKey, device.IP)
	}

	current.IP = device.IP
	current.Hostname = device.Hostname
	current.OperatingSystemID = device.OperatingSystemID
	current.ManufacturerID = device.ManufacturerID
	current.TTL = copyInt(device.TTL)
	current.OSHints = device.OSHints
	current.LastSeenAt = copyTime(device.LastSeenAt)
	current.UpdatedAt = s.now()
	s.state.devices[current.ID] = current
	return nil
}

func (s *InventoryStore) findDeviceByIP(ip string) (inventory.Device, bool) {
	for _, d := range s.state.devices {
		if d.IP == ip {
			return d, true
		}
	}
	return inventory.Device{}, false
}

func (s *InventoryStore) findDeviceByMAC(mac string) (inventory.Device, bool) {
	for _, d := range s.state.devices {
		if d.MAC != nil && *d.MAC == mac {
			return d, true
		}
	}
	return inventory.Device{}, false
}

// -----------------------------------------------------------------------------
// 目录
// -----------------------------------------------------------------------------

func (s *InventoryStore) GetManufacturerByOUI(ctx context.Context, oui string) (*inventory.Manufacturer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, m := range s.state.manufacturers {
		if m.OUI == oui {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (s *InventoryStore) CreateManufacturer(ctx context.Context, manufacturer *inventory.Manufacturer) error {
	if manufacturer == nil {
		return errors.New("manufacturer is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, m := range s.state.manufacturers {
		if m.OUI == manufacturer.OUI {
			return fmt.Errorf("%w: oui %s", repo.ErrDuplicateKey, manufacturer.OUI)
		}
	}
	manufacturer.ID = s.state.nextID()
	manufacturer.CreatedAt = s.now()
	s.state.manufacturers[manufacturer.ID] = *manufacturer
	return nil
}

func (s *InventoryStore) GetOperatingSystemByName(ctx context.Context, name string) (*inventory.OperatingSystem, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, os := range s.state.systems {
		if strings.EqualFold(os.Name, name) {
			out := os
			return &out, nil
		}
	}
	return nil, nil
}

// FindOperatingSystemLike 不区分大小写的子串匹配，取名称最短者(同长取ID小者)
func (s *InventoryStore) FindOperatingSystemLike(ctx context.Context, fragment string) (*inventory.OperatingSystem, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	needle := strings.ToLower(fragment)
	var best *inventory.OperatingSystem
	for _, os := range s.state.systems {
		if !strings.Contains(strings.ToLower(os.Name), needle) {
			continue
		}
		if best == nil || len(os.Name) < len(best.Name) ||
			(len(os.Name) == len(best.Name) && os.ID < best.ID) {
			candidate := os
			best = &candidate
		}
	}
	return best, nil
}

func (s *InventoryStore) CreateOperatingSystem(ctx context.Context, os *inventory.OperatingSystem) error {
	if os == nil {
		return errors.New("operating system is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, existing := range s.state.systems {
		if strings.EqualFold(existing.Name, os.Name) {
			return fmt.Errorf("%w: os %s", repo.ErrDuplicateKey, os.Name)
		}
	}
	os.ID = s.state.nextID()
	os.CreatedAt = s.now()
	s.state.systems[os.ID] = *os
	return nil
}

func (s *InventoryStore) GetProtocolByPort(ctx context.Context, port int) (*inventory.Protocol, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, p := range s.state.protocols {
		if p.Port == port {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *InventoryStore) CreateProtocol(ctx context.Context, protocol *inventory.Protocol) error {
	if protocol == nil {
		return errors.New("protocol is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, p := range s.state.protocols {
		if p.Port == protocol.Port {
			return fmt.Errorf("%w: port %d", repo.ErrDuplicateKey, protocol.Port)
		}
	}
	if protocol.Category == "" {
		protocol.Category = inventory.CategoryOther
	}
	protocol.ID = s.state.nextID()
	protocol.CreatedAt = s.now()
	s.state.protocols[protocol.ID] = *protocol
	return nil
}

// -----------------------------------------------------------------------------
// ProtocolUsage / Conflict
// -----------------------------------------------------------------------------

func (s *InventoryStore) GetProtocolUsage(ctx context.Context, deviceID, protocolID uint64, port int) (*inventory.ProtocolUsage, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if u, ok := s.state.usages[usageKey{deviceID, protocolID, port}]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *InventoryStore) CreateProtocolUsage(ctx context.Context, usage *inventory.ProtocolUsage) error {
	if usage == nil {
		return errors.New("protocol usage is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	key := usageKey{usage.DeviceID, usage.ProtocolID, usage.DetectedPort}
	if _, ok := s.state.usages[key]; ok {
		return fmt.Errorf("%w: usage %d/%d/%d", repo.ErrDuplicateKey, key.deviceID, key.protocolID, key.port)
	}
	now := s.now()
	usage.ID = s.state.nextID()
	usage.CreatedAt = now
	usage.UpdatedAt = now
	s.state.usages[key] = *usage
	return nil
}

func (s *InventoryStore) TouchProtocolUsage(ctx context.Context, usage *inventory.ProtocolUsage) error {
	if usage == nil {
		return errors.New("protocol usage is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	key := usageKey{usage.DeviceID, usage.ProtocolID, usage.DetectedPort}
	current, ok := s.state.usages[key]
	if !ok {
		return nil
	}
	current.LastSeenAt = usage.LastSeenAt
	current.State = usage.State
	current.UpdatedAt = s.now()
	s.state.usages[key] = current
	return nil
}

func (s *InventoryStore) InsertConflict(ctx context.Context, conflict *inventory.Conflict) error {
	if conflict == nil {
		return errors.New("conflict is nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	conflict.ID = s.state.nextID()
	s.state.conflicts = append(s.state.conflicts, copyConflict(*conflict))
	return nil
}

// -----------------------------------------------------------------------------
// 只读快照，供 CLI 输出和测试断言
// -----------------------------------------------------------------------------

// Devices 按ID升序返回全部设备
func (s *InventoryStore) Devices() []inventory.Device {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]inventory.Device, 0, len(s.state.devices))
	for _, d := range s.state.devices {
		out = append(out, copyDevice(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Manufacturers 按ID升序返回全部厂商
func (s *InventoryStore) Manufacturers() []inventory.Manufacturer {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]inventory.Manufacturer, 0, len(s.state.manufacturers))
	for _, m := range s.state.manufacturers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OperatingSystems 按ID升序返回全部操作系统
func (s *InventoryStore) OperatingSystems() []inventory.OperatingSystem {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]inventory.OperatingSystem, 0, len(s.state.systems))
	for _, os := range s.state.systems {
		out = append(out, os)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Protocols 按端口升序返回全部协议
func (s *InventoryStore) Protocols() []inventory.Protocol {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]inventory.Protocol, 0, len(s.state.protocols))
	for _, p := range s.state.protocols {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// Usages 按ID升序返回全部端口使用记录
func (s *InventoryStore) Usages() []inventory.ProtocolUsage {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]inventory.ProtocolUsage, 0, len(s.state.usages))
	for _, u := range s.state.usages {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Conflicts 按写入顺序返回全部冲突记录
func (s *InventoryStore) Conflicts() []inventory.Conflict {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]inventory.Conflict, len(s.state.conflicts))
	for i, c := range s.state.conflicts {
		out[i] = copyConflict(c)
	}
	return out
}

func copyDevice(d inventory.Device) inventory.Device {
	d.MAC = copyString(d.MAC)
	d.TTL = copyInt(d.TTL)
	d.LastSeenAt = copyTime(d.LastSeenAt)
	return d
}

func copyConflict(c inventory.Conflict) inventory.Conflict {
	c.MAC = copyString(c.MAC)
	return c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
