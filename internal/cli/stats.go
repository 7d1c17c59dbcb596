package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats [test]",
	Short: "Show conversion statistics",
	Long: `Show impression and conversion statistics per variant.

Without arguments, shows statistics for every test. With a test name or
ID, shows that test only, including the winner when the numbers support
one.

Examples:
  abtest stats
  abtest stats checkout-button`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	var reports []*domain.TestReport
	if len(args) == 1 {
		test, err := findTest(ctx, app.TestRepo, args[0])
		if err != nil {
			return err
		}
		report, err := app.Analytics.Report(ctx, test.ID)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		reports = append(reports, report)
	} else {
		reports, err = app.Analytics.ReportAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to build reports: %w", err)
		}
		if len(reports) == 0 {
			fmt.Println("No tests found")
			return nil
		}
	}

	for _, report := range reports {
		printReport(report)
	}
	return nil
}

func printReport(report *domain.TestReport) {
	fmt.Println()
	fmt.Printf("  %s\n", report.TestName)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  VARIANT\tIMPRESSIONS\tCONVERSIONS\tRATE\tVISITORS")
	fmt.Fprintln(w, "  -------\t-----------\t-----------\t----\t--------")
	for i := range report.Variants {
		vs := &report.Variants[i]
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			vs.VariantID,
			util.FormatCount(vs.Impressions),
			util.FormatCount(vs.Conversions),
			util.FormatPercent(vs.ConversionRate()),
			util.FormatCount(vs.UniqueVisitors))
	}
	w.Flush()

	if report.Winner != nil {
		fmt.Printf("\n  Winner: %s at %s confidence\n",
			report.Winner.VariantID, util.FormatPercent(report.Confidence))
	}
	if report.Recommendation != "" {
		fmt.Printf("  %s\n", report.Recommendation)
	}
	fmt.Println()
}
