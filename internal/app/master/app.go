package master

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/HectorPOsuna/escaner-red/internal/app/master/router"
	"github.com/HectorPOsuna/escaner-red/internal/app/master/setup"
	"github.com/HectorPOsuna/escaner-red/internal/config"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"
	"github.com/HectorPOsuna/escaner-red/internal/service/ingest"

	"github.com/sirupsen/logrus"
)

// App 应用程序结构体
type App struct {
	config  *config.Config
	storage *setup.Storage
	scan    *setup.ScanModule
	router  *router.Router
	server  *http.Server
	spool   *ingest.SpoolWatcher
}

// NewApp 创建新的应用程序实例
// 连接存储、装配扫描模块并设置路由；启用 spool 时同时创建目录监听器
func NewApp(cfg *config.Config) (*App, error) {
	storage, err := setup.BuildStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage: %w", err)
	}

	scanModule := setup.BuildScanModule(cfg, storage.Store)

	r := router.NewRouter(cfg, storage.Store, scanModule)
	r.SetupRoutes()

	app := &App{
		config:  cfg,
		storage: storage,
		scan:    scanModule,
		router:  r,
		server: &http.Server{
			Addr:           cfg.Server.GetAddress(),
			Handler:        r.GetEngine(),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	if cfg.Ingest.Spool.Enabled {
		watcher, err := ingest.NewSpoolWatcher(cfg.Ingest.Spool.Dir, cfg.Ingest.Spool.Debounce, ingest.NewFileImporter(scanModule.Ingestor, ingest.SourceSpool))
		if err != nil {
			_ = storage.Close()
			return nil, err
		}
		app.spool = watcher
	}

	return app, nil
}

// GetConfig 获取配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// Storage 获取存储
func (a *App) Storage() *setup.Storage {
	return a.storage
}

// ScanModule 获取扫描模块
func (a *App) ScanModule() *setup.ScanModule {
	return a.scan
}

// Start 启动 spool 监听与 HTTP 服务，监听失败通过返回的 channel 通知
func (a *App) Start() (<-chan error, error) {
	if a.spool != nil {
		if err := a.spool.Start(); err != nil {
			return nil, fmt.Errorf("failed to start spool watcher: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogSystemEvent("http_server", "starting", "starting server", logrus.InfoLevel, map[string]interface{}{
			"addr": a.server.Addr,
		})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh, nil
}

// Stop 停止应用程序: 先停止接收请求，再停止目录监听，最后关闭存储连接
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if a.spool != nil {
		if err := a.spool.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("spool watcher stop: %w", err))
		}
	}
	if err := a.storage.Close(); err != nil {
		errs = append(errs, err)
	}

	logger.LogSystemEvent("http_server", "stopped", "server stopped", logrus.InfoLevel, nil)
	return errors.Join(errs...)
}
