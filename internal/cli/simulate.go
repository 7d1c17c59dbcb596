package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/google/uuid"

	"github.com/pm33/abtest/internal/util"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <test>",
	Short: "Simulate variant draws",
	Long: `Run repeated unpersisted draws against a test and print the
empirical distribution next to the configured weights. Useful for
sanity checking a weight setup before going live.

Examples:
  abtest simulate checkout-button
  abtest simulate checkout-button -n 100000`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

var simulateDraws int

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVarP(&simulateDraws, "draws", "n", 10000, "Number of draws")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if simulateDraws <= 0 {
		return fmt.Errorf("draws must be positive, got %d", simulateDraws)
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := findTest(ctx, app.TestRepo, args[0])
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(test.Variants))
	for i := 0; i < simulateDraws; i++ {
		variant, err := app.Engine.Resolve(ctx, test, uuid.New().String(), false)
		if err != nil {
			return fmt.Errorf("draw failed: %w", err)
		}
		counts[variant.ID]++
	}

	total := test.TotalWeight()

	fmt.Printf("\n  %s: %d draws\n\n", test.Name, simulateDraws)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  VARIANT\tDRAWS\tOBSERVED\tEXPECTED")
	fmt.Fprintln(w, "  -------\t-----\t--------\t--------")
	for _, v := range test.Variants {
		observed := float64(counts[v.ID]) / float64(simulateDraws)
		expected := 0.0
		if total > 0 {
			expected = v.Weight / total
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\t%s\n",
			v.ID, counts[v.ID], util.FormatPercent(observed), util.FormatPercent(expected))
	}
	w.Flush()
	fmt.Println()

	return nil
}
