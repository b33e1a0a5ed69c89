/**
 * 服务层:目录数据初始化
 * @date: 2025.11.21
 * @description: 哨兵记录、默认操作系统/协议、IEEE oui.txt 与 IANA 端口表导入
 * @func: 所有写入幂等，已存在的记录跳过
 */
package catalog

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"gopkg.in/yaml.v3"
)

// ChunkSize 每个事务写入的记录数
const ChunkSize = 1000

// maxDescriptionLen protocolos.descripcion 列长度
const maxDescriptionLen = 255

//go:embed defaults.yaml
var defaultsYAML []byte

// ouiLine IEEE oui.txt 行格式: 00-00-00   (hex)		XEROX CORPORATION
var ouiLine = regexp.MustCompile(`(?i)^([0-9A-F]{2}-[0-9A-F]{2}-[0-9A-F]{2})\s+\(hex\)\s+(.+)$`)

// Defaults 内置默认目录
type Defaults struct {
	Manufacturers []struct {
		OUI  string `yaml:"oui"`
		Name string `yaml:"name"`
	} `yaml:"manufacturers"`
	OperatingSystems []string `yaml:"operating_systems"`
	Protocols        []struct {
		Port        int    `yaml:"port"`
		Name        string `yaml:"name"`
		Category    string `yaml:"category"`
		Description string `yaml:"description"`
	} `yaml:"protocols"`
}

// LoadDefaults 解析内置默认目录
func LoadDefaults() (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		return nil, fmt.Errorf("failed to parse catalog defaults: %w", err)
	}
	for _, p := range d.Protocols {
		if !inventory.ProtocolCategory(p.Category).Valid() {
			return nil, fmt.Errorf("invalid category %q for port %d", p.Category, p.Port)
		}
	}
	return &d, nil
}

// Stats 导入统计
type Stats struct {
	Read     int // 解析出的有效记录
	Inserted int // 新写入
	Skipped  int // 已存在
}

// Add 累加
func (s *Stats) Add(other Stats) {
	s.Read += other.Read
	s.Inserted += other.Inserted
	s.Skipped += other.Skipped
}

// Seeder 目录初始化器
type Seeder struct {
	store repo.InventoryStore
}

// NewSeeder 创建目录初始化器
func NewSeeder(store repo.InventoryStore) *Seeder {
	return &Seeder{store: store}
}

// EnsureSentinels 写入未知厂商(OUI 000000)与 Unknown 操作系统
func (s *Seeder) EnsureSentinels(ctx context.Context) error {
	return s.store.Transaction(ctx, func(tx repo.InventoryStore) error {
		if _, err := insertManufacturer(ctx, tx, inventory.UnknownManufacturerOUI, inventory.UnknownManufacturerName); err != nil {
			return fmt.Errorf("seed unknown manufacturer: %w", err)
		}
		if _, err := insertOperatingSystem(ctx, tx, inventory.UnknownOperatingSystem); err != nil {
			return fmt.Errorf("seed unknown operating system: %w", err)
		}
		return nil
	})
}

// SeedDefaults 写入哨兵与内置默认目录
func (s *Seeder) SeedDefaults(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.EnsureSentinels(ctx); err != nil {
		return stats, err
	}

	defaults, err := LoadDefaults()
	if err != nil {
		return stats, err
	}

	err = s.store.Transaction(ctx, func(tx repo.InventoryStore) error {
		var local Stats
		for _, m := range defaults.Manufacturers {
			local.Read++
			ok, err := insertManufacturer(ctx, tx, strings.ToUpper(m.OUI), m.Name)
			if err != nil {
				return err
			}
			local.count(ok)
		}
		for _, name := range defaults.OperatingSystems {
			local.Read++
			ok, err := insertOperatingSystem(ctx, tx, name)
			if err != nil {
				return err
			}
			local.count(ok)
		}
		for _, p := range defaults.Protocols {
			local.Read++
			ok, err := insertProtocol(ctx, tx, &inventory.Protocol{
				Port:        p.Port,
				Name:        p.Name,
				Description: p.Description,
				Category:    inventory.ProtocolCategory(p.Category),
			})
			if err != nil {
				return err
			}
			local.count(ok)
		}
		stats = local
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	logger.LogBusinessOperation("seed_defaults", "catalog", "", "", "success", "catalog defaults seeded", map[string]interface{}{
		"read":     stats.Read,
		"inserted": stats.Inserted,
		"skipped":  stats.Skipped,
	})
	return stats, nil
}

// ImportOUI 导入 IEEE oui.txt
func (s *Seeder) ImportOUI(ctx context.Context, r io.Reader) (Stats, error) {
	var total Stats
	chunk := make([]inventory.Manufacturer, 0, ChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		stats, err := s.writeChunk(ctx, len(chunk), func(tx repo.InventoryStore, i int) (bool, error) {
			return insertManufacturer(ctx, tx, chunk[i].OUI, chunk[i].Name)
		})
		total.Add(stats)
		chunk = chunk[:0]
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := ouiLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[2])
		if name == "" {
			continue
		}
		chunk = append(chunk, inventory.Manufacturer{
			OUI:  strings.ToUpper(strings.ReplaceAll(m[1], "-", "")),
			Name: name,
		})
		if len(chunk) >= ChunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("failed to read oui file: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}

	logger.LogBusinessOperation("import_oui", "catalog", "", "", "success", "oui list imported", map[string]interface{}{
		"read":     total.Read,
		"inserted": total.Inserted,
		"skipped":  total.Skipped,
	})
	return total, nil
}

// ImportIANA 导入 IANA service-names-port-numbers.csv
// 端口范围(如 6000-6063)与无服务名的行跳过，同端口只保留第一条
func (s *Seeder) ImportIANA(ctx context.Context, r io.Reader) (Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read iana header: %w", err)
	}
	nameCol, portCol, descCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "service name":
			nameCol = i
		case "port number":
			portCol = i
		case "description":
			descCol = i
		}
	}
	if nameCol < 0 || portCol < 0 {
		return Stats{}, errors.New("iana csv must have 'Service Name' and 'Port Number' columns")
	}

	var total Stats
	seen := make(map[int]struct{})
	chunk := make([]inventory.Protocol, 0, ChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		stats, err := s.writeChunk(ctx, len(chunk), func(tx repo.InventoryStore, i int) (bool, error) {
			p := chunk[i]
			return insertProtocol(ctx, tx, &p)
		})
		total.Add(stats)
		chunk = chunk[:0]
		return err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to read iana csv: %w", err)
		}
		if portCol >= len(record) || nameCol >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[nameCol])
		port, convErr := strconv.Atoi(strings.TrimSpace(record[portCol]))
		if name == "" || convErr != nil || port < 1 || port > 65535 {
			continue
		}
		if _, dup := seen[port]; dup {
			continue
		}
		seen[port] = struct{}{}

		description := ""
		if descCol >= 0 && descCol < len(record) {
			description = truncateRunes(strings.TrimSpace(record[descCol]), maxDescriptionLen)
		}
		chunk = append(chunk, inventory.Protocol{
			Port:        port,
			Name:        name,
			Description: description,
			Category:    CategoryForPort(port),
		})
		if len(chunk) >= ChunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	logger.LogBusinessOperation("import_iana", "catalog", "", "", "success", "iana port list imported", map[string]interface{}{
		"read":     total.Read,
		"inserted": total.Inserted,
		"skipped":  total.Skipped,
	})
	return total, nil
}

// writeChunk 在一个事务内写入 n 条记录
func (s *Seeder) writeChunk(ctx context.Context, n int, insert func(tx repo.InventoryStore, i int) (bool, error)) (Stats, error) {
	var stats Stats
	err := s.store.Transaction(ctx, func(tx repo.InventoryStore) error {
		local := Stats{}
		for i := 0; i < n; i++ {
			local.Read++
			ok, err := insert(tx, i)
			if err != nil {
				return err
			}
			local.count(ok)
		}
		stats = local
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to write chunk: %w", err)
	}
	return stats, nil
}

func (s *Stats) count(inserted bool) {
	if inserted {
		s.Inserted++
	} else {
		s.Skipped++
	}
}

// insertManufacturer 已存在返回 false
func insertManufacturer(ctx context.Context, tx repo.InventoryStore, oui, name string) (bool, error) {
	existing, err := tx.GetManufacturerByOUI(ctx, oui)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	return ignoreDuplicate(tx.CreateManufacturer(ctx, &inventory.Manufacturer{OUI: oui, Name: name}))
}

func insertOperatingSystem(ctx context.Context, tx repo.InventoryStore, name string) (bool, error) {
	existing, err := tx.GetOperatingSystemByName(ctx, name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	return ignoreDuplicate(tx.CreateOperatingSystem(ctx, &inventory.OperatingSystem{Name: name}))
}

func insertProtocol(ctx context.Context, tx repo.InventoryStore, p *inventory.Protocol) (bool, error) {
	existing, err := tx.GetProtocolByPort(ctx, p.Port)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	return ignoreDuplicate(tx.CreateProtocol(ctx, p))
}

func ignoreDuplicate(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repo.ErrDuplicateKey) {
		return false, nil
	}
	return false, err
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
