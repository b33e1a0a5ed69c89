package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/HectorPOsuna/escaner-red/internal/app/master/setup"
	"github.com/HectorPOsuna/escaner-red/internal/service/ingest"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "前台监听落盘目录并导入新文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = cfg.Ingest.Spool.Dir
			}

			storage, err := openStorage()
			if err != nil {
				return err
			}
			defer storage.Close()

			module := setup.BuildScanModule(cfg, storage.Store)
			watcher, err := ingest.NewSpoolWatcher(dir, cfg.Ingest.Spool.Debounce, ingest.NewFileImporter(module.Ingestor, ingest.SourceSpool))
			if err != nil {
				return err
			}
			watcher.OnImported(func(path string, result *ingest.Result, err error) {
				name := filepath.Base(path)
				if err != nil {
					pterm.Error.Printfln("%s: %v", name, err)
					return
				}
				pterm.Success.Printfln("%s: processed=%d conflicts=%d errors=%d",
					name, result.Summary.Processed, result.Summary.Conflicts, result.Summary.Errors)
			})
			if err := watcher.Start(); err != nil {
				return err
			}
			pterm.Info.Printfln("watching %s (Ctrl+C to stop)", dir)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			signal.Stop(quit)

			return watcher.Stop()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "监听目录 (默认: ingest.spool.dir)")
	return cmd
}
