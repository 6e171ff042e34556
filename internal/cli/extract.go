package cli

import (
	"github.com/spf13/cobra"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/app"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/ocr"
	"github.com/jzielinski/invoicescan/internal/worker"
)

var extractVendorKey string

var extractCmd = &cobra.Command{
	Use:   "extract <document.json>",
	Short: "Extract payment fields from one OCR'd document",
	Long: `Extract reads a document file (OCR lines from both recognition passes),
runs the keyword ruleset against it, and prints ranked field candidates
as JSON on stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		a, err := app.Bootstrap(cmd.Context(), common.LoadConfig(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		if extractVendorKey != "" {
			job.VendorKey = extractVendorKey
		}

		byField := a.Extractor.Extract(job.VendorKey, job.Lines)
		res := worker.Result{DocumentID: job.DocumentID, VendorKey: job.VendorKey}
		for _, field := range constants.FieldTypes() {
			res.Fields = append(res.Fields, byField[field])
		}
		return printJSON(resultToOut(res, ocr.Stats(job.Lines)))
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractVendorKey, "vendor", "", "vendor key for learned-rule lookups (overrides the document file)")
	rootCmd.AddCommand(extractCmd)
}
