package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/HectorPOsuna/escaner-red/internal/service/catalog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "写入厂商/操作系统/协议目录",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "写入哨兵记录与内置默认目录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed("defaults", "", func(s *catalog.Seeder, ctx context.Context, _ io.Reader) (catalog.Stats, error) {
				return s.SeedDefaults(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "oui [oui.txt]",
		Short: "导入 IEEE OUI 厂商列表",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed("oui", fileArg(args, cfg.Catalog.OUIFile), func(s *catalog.Seeder, ctx context.Context, r io.Reader) (catalog.Stats, error) {
				return s.ImportOUI(ctx, r)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "iana [service-names-port-numbers.csv]",
		Short: "导入 IANA 端口/服务列表",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed("iana", fileArg(args, cfg.Catalog.IANAFile), func(s *catalog.Seeder, ctx context.Context, r io.Reader) (catalog.Stats, error) {
				return s.ImportIANA(ctx, r)
			})
		},
	})

	return cmd
}

type seedFunc func(s *catalog.Seeder, ctx context.Context, r io.Reader) (catalog.Stats, error)

func runSeed(name, path string, fn seedFunc) error {
	var reader io.Reader
	if name != "defaults" {
		if path == "" {
			return fmt.Errorf("%s file is required", name)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		reader = f
	}

	storage, err := openStorage()
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx := context.Background()
	seeder := catalog.NewSeeder(storage.Store)
	// 导入前确保哨兵记录存在
	if err := seeder.EnsureSentinels(ctx); err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start("importing " + name)
	stats, err := fn(seeder, ctx, reader)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(name + " imported")
	return printSeedStats(name, stats)
}

func fileArg(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

func printSeedStats(name string, stats catalog.Stats) error {
	return pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false).
		WithData(pterm.TableData{
			{"catalog", "read", "inserted", "skipped"},
			{name, strconv.Itoa(stats.Read), strconv.Itoa(stats.Inserted), strconv.Itoa(stats.Skipped)},
		}).
		Render()
}
