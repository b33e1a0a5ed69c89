/*
 * @date: 2025.11.22
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"os"

	"github.com/HectorPOsuna/escaner-red/internal/app/master/setup"
	"github.com/HectorPOsuna/escaner-red/internal/config"
	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"

	"github.com/spf13/cobra"
)

// skipConfigAnnotation 无需加载配置的子命令
const skipConfigAnnotation = "skip_config"

var (
	configPath string
	envName    string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "escaner",
	Short: "escaner 扫描结果对账服务",
	Long: `escaner 接收网络扫描 Agent 上报的主机清单，与设备库对账并记录身份冲突。

示例:
  1.启动服务
	escaner server --env production
  2.迁移表结构并写入默认目录
	escaner migrate
  3.导入离线扫描文件
	escaner import scan_results.json
  4.导入 IEEE/IANA 目录
	escaner seed oui oui.txt
	escaner seed iana service-names-port-numbers.csv
`,
	SilenceUsage: true,
	// PersistentPreRunE: 加载配置并初始化日志，所有子命令共用
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return nil
		}
		loaded, err := config.LoadConfig(configPath, envName)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if _, err := logger.InitLogger(&loaded.Log); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置目录 (默认: ./configs 或 $ESCANER_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "运行环境 (development, test, production)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "覆盖配置中的日志级别 (debug, info, warn, error)")

	// 注册子命令
	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// openStorage 打开配置中的存储
func openStorage() (*setup.Storage, error) {
	storage, err := setup.BuildStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return storage, nil
}
