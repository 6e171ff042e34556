package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jzielinski/invoicescan/internal/app"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/matching"
)

var (
	matchVendorName string
	matchTaxID      string
	matchAmount     float64
	matchCurrency   string
	matchDueDay     int
	matchCommit     bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a document against recurring payment templates",
	Long: `Match fingerprints the vendor identity and checks the document amount
against stored recurring templates. With --commit, a matched template
records the hit and an unmatched document creates a new template.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fingerprint := matching.Fingerprint(matchVendorName, matchTaxID)
		if fingerprint == "" {
			return fmt.Errorf("either --vendor-name or --tax-id is required")
		}

		logger := newLogger()
		a, err := app.Bootstrap(cmd.Context(), common.LoadConfig(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		candidates, err := a.Templates.ListByFingerprint(cmd.Context(), fingerprint)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			all, err := a.Templates.List(cmd.Context())
			if err != nil {
				return err
			}
			candidates = matching.NearestCandidates(fingerprint, all)
		}
		result := matching.Decide(fingerprint, matchAmount, candidates, a.MatchOptions())

		out := struct {
			Fingerprint       string               `json:"fingerprint"`
			Outcome           matching.Outcome     `json:"outcome"`
			TemplateID        string               `json:"template_id,omitempty"`
			PercentDifference float64              `json:"percent_difference"`
			Candidates        []matching.Candidate `json:"candidates,omitempty"`
			CreatedTemplateID string               `json:"created_template_id,omitempty"`
		}{
			Fingerprint:       fingerprint,
			Outcome:           result.Outcome,
			PercentDifference: result.PercentDifference,
			Candidates:        result.Candidates,
		}

		if result.Outcome == matching.ExactMatch || result.Outcome == matching.AutoMatch {
			out.TemplateID = result.TemplateID.String()
			if matchCommit {
				if err := a.Templates.RecordMatch(cmd.Context(), result.TemplateID); err != nil {
					return err
				}
			}
		}
		if matchCommit &&
			(result.Outcome == matching.NoExistingTemplates || result.Outcome == matching.AutoCreateNew) {
			created, err := a.Templates.Create(cmd.Context(), matching.Template{
				ID:                uuid.New(),
				VendorFingerprint: fingerprint,
				AmountMin:         &matchAmount,
				AmountMax:         &matchAmount,
				DueDayOfMonth:     matchDueDay,
				Currency:          matchCurrency,
			})
			if err != nil {
				return err
			}
			out.CreatedTemplateID = created.ID.String()
		}

		return printJSON(out)
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchVendorName, "vendor-name", "", "vendor display name")
	matchCmd.Flags().StringVar(&matchTaxID, "tax-id", "", "vendor tax identifier")
	matchCmd.Flags().Float64Var(&matchAmount, "amount", 0, "document amount")
	matchCmd.Flags().StringVar(&matchCurrency, "currency", "PLN", "document currency")
	matchCmd.Flags().IntVar(&matchDueDay, "due-day", 0, "due day of month for a created template")
	matchCmd.Flags().BoolVar(&matchCommit, "commit", false, "record matches and create templates")
	rootCmd.AddCommand(matchCmd)
}
