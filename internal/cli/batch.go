package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jzielinski/invoicescan/internal/app"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/export"
	"github.com/jzielinski/invoicescan/internal/worker"
)

var (
	batchWorkers int
	batchOutput  string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir|document.json...>",
	Short: "Extract fields from many documents concurrently",
	Long: `Batch runs the extractor over a set of document files using a worker
pool. Results are printed as JSON, or written to an XLSX report when
--output is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		a, err := app.Bootstrap(cmd.Context(), common.LoadConfig(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		paths, err := collectDocuments(args)
		if err != nil {
			return err
		}
		jobs := make([]worker.Job, 0, len(paths))
		for _, path := range paths {
			job, err := loadDocument(path)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}

		results := worker.RunBatch(cmd.Context(), a.Extractor, jobs, logger,
			worker.WithWorkers(batchWorkers))

		if batchOutput != "" {
			svc := export.NewService(a.Rulesets, logger)
			docs := make([]export.DocumentResult, len(results))
			for i, res := range results {
				docs[i] = export.DocumentResult{
					DocumentID: res.DocumentID,
					VendorKey:  res.VendorKey,
					Fields:     res.Fields,
				}
			}
			data, err := svc.ExportResultsXLSX(docs)
			if err != nil {
				return err
			}
			if err := os.WriteFile(batchOutput, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			cmd.Printf("wrote %s (%d documents)\n", batchOutput, len(results))
			return nil
		}

		out := make([]documentOut, len(results))
		for i, res := range results {
			out[i] = resultToOut(res, nil)
		}
		return printJSON(out)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "number of extraction workers")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write an XLSX report instead of JSON")
	rootCmd.AddCommand(batchCmd)
}
