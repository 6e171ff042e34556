package cli

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "invoicescan",
	Short: "Invoicescan - local invoice field extraction and vendor learning",
	Long: `Invoicescan extracts payment fields (amount, due date, vendor, tax ID,
bank account) from OCR'd invoice lines, entirely on the local machine.

It scores lines against a bilingual keyword ruleset, learns per-vendor
anchor phrases from user corrections, and matches documents against
recurring payment templates.

Raw OCR text never leaves the process: only extracted values and
aggregate page statistics are stored or printed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("invoicescan v0.3.0")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(versionCmd)
}
