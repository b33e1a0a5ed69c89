package main

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"

	"github.com/HectorPOsuna/escaner-red/internal/app/master/setup"
	"github.com/HectorPOsuna/escaner-red/internal/service/ingest"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "import <file> [file...]",
		Short: "导入离线扫描结果文件",
		Long: `逐个导入扫描结果 JSON 文件。成功的文件重命名为 <file>.processed，
校验失败的文件重命名为 <file>.rejected，存储错误时文件保持不变以便重试。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lenient {
				cfg.Ingest.StrictValidation = false
			}

			storage, err := openStorage()
			if err != nil {
				return err
			}
			defer storage.Close()

			module := setup.BuildScanModule(cfg, storage.Store)
			importer := ingest.NewFileImporter(module.Ingestor, ingest.SourceFile)

			table := pterm.TableData{{"file", "status", "processed", "conflicts", "errors"}}
			var failed int
			for _, path := range args {
				result, err := importer.ImportFile(context.Background(), path)
				status := "processed"
				switch {
				case err == nil:
				case scan.IsValidationError(err):
					status = "rejected"
					failed++
				case scan.IsFatalBatchError(err):
					status = "storage unavailable"
					failed++
				default:
					status = "failed: " + err.Error()
					failed++
				}
				row := []string{filepath.Base(path), status, "-", "-", "-"}
				if result != nil {
					row[2] = strconv.Itoa(result.Summary.Processed)
					row[3] = strconv.Itoa(result.Summary.Conflicts)
					row[4] = strconv.Itoa(result.Summary.Errors)
				}
				table = append(table, row)

				if result != nil && len(result.Problems) > 0 {
					for _, p := range result.Problems {
						pterm.Warning.Printfln("%s: %s", filepath.Base(path), p)
					}
				}
			}

			if err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(table).Render(); err != nil {
				return err
			}
			if failed > 0 {
				return errors.New(strconv.Itoa(failed) + " file(s) not imported")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&lenient, "lenient", false, "丢弃不合法的条目，继续处理其余主机")
	return cmd
}
