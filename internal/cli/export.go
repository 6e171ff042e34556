package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jzielinski/invoicescan/internal/app"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export learned keyword statistics to XLSX",
	Long: `Export writes every vendor's keyword statistics (hits, misses, state,
anchor phrases) to an XLSX workbook for review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		a, err := app.Bootstrap(cmd.Context(), common.LoadConfig(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		svc := export.NewService(a.Rulesets, logger)
		data, err := svc.ExportLearningXLSX(cmd.Context())
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		cmd.Printf("wrote %s\n", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "keyword_stats.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
