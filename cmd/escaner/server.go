package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/app/master"
	"github.com/HectorPOsuna/escaner-red/internal/config"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var watchConfig bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "启动上报接收服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := master.NewApp(cfg)
			if err != nil {
				return err
			}

			// 日志级别/格式热更新
			if watchConfig {
				watcher, err := config.NewConfigWatcher(configPath, envName)
				if err != nil {
					logger.LogSystemEvent("config_watcher", "create_failed", err.Error(), logrus.WarnLevel, nil)
				} else {
					watcher.AddCallback(logger.ReloadCallback)
					if err := watcher.Start(); err != nil {
						logger.LogSystemEvent("config_watcher", "start_failed", err.Error(), logrus.WarnLevel, nil)
					} else {
						defer watcher.Stop()
					}
				}
			}

			errCh, err := app.Start()
			if err != nil {
				_ = app.Stop(context.Background())
				return err
			}

			// 等待中断信号以优雅地关闭服务器
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			var serveErr error
			select {
			case <-quit:
			case serveErr = <-errCh:
			}

			// 给服务器5秒钟的时间来完成现有请求
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Stop(ctx); err != nil {
				logger.LogSystemEvent("http_server", "stop_failed", err.Error(), logrus.ErrorLevel, nil)
			}
			if serveErr != nil {
				return fmt.Errorf("server failed: %w", serveErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchConfig, "watch-config", true, "监听配置文件并热更新日志配置")
	return cmd
}
