package setup

import (
	"github.com/HectorPOsuna/escaner-red/internal/config"
	scanHandler "github.com/HectorPOsuna/escaner-red/internal/handler/scan"
	"github.com/HectorPOsuna/escaner-red/internal/repo"
	"github.com/HectorPOsuna/escaner-red/internal/service/catalog"
	"github.com/HectorPOsuna/escaner-red/internal/service/ingest"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"
)

// ScanModule 扫描结果接收模块的聚合输出
type ScanModule struct {
	// Handlers
	ReceiveHandler *scanHandler.ReceiveHandler

	// Services
	Ingestor   ingest.ScanIngestor
	Reconciler *scan.Reconciler
	Seeder     *catalog.Seeder
}

// BuildScanModule 装配规范化器、对账器与摄入服务
func BuildScanModule(cfg *config.Config, store repo.InventoryStore) *ScanModule {
	var archiver ingest.EvidenceArchiver
	if cfg.Ingest.ArchiveDir != "" {
		archiver = ingest.NewFileArchiver(cfg.Ingest.ArchiveDir)
	}

	normalizer := scan.NewNormalizer(cfg.Ingest.MaxDevices)
	reconciler := scan.NewReconciler(store)
	ingestor := ingest.NewScanIngestor(normalizer, reconciler, archiver, cfg.Ingest.StrictValidation)

	return &ScanModule{
		ReceiveHandler: scanHandler.NewReceiveHandler(ingestor, cfg.Server.MaxBodyBytes),
		Ingestor:       ingestor,
		Reconciler:     reconciler,
		Seeder:         catalog.NewSeeder(store),
	}
}
