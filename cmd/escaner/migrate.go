package main

import (
	"context"

	"github.com/HectorPOsuna/escaner-red/internal/service/catalog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "迁移清单表结构并写入默认目录",
		Long: `迁移 equipos/fabricantes/sistemas_operativos/protocolos/protocolos_usados/conflictos 表，
随后写入未知厂商、Unknown 操作系统以及内置的操作系统与常用端口目录。重复执行是安全的。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openStorage()
			if err != nil {
				return err
			}
			defer storage.Close()

			ctx := context.Background()
			if err := storage.Migrate(ctx); err != nil {
				return err
			}
			pterm.Success.Printfln("tables migrated (driver: %s)", cfg.Database.Driver)

			if noSeed {
				return nil
			}
			stats, err := catalog.NewSeeder(storage.Store).SeedDefaults(ctx)
			if err != nil {
				return err
			}
			return printSeedStats("defaults", stats)
		},
	}

	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "只迁移表结构，不写入默认目录")
	return cmd
}
