package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <test> <visitor-id>",
	Short: "Resolve the variant a visitor sees",
	Long: `Resolve which variant the given visitor sees for a test.

The first call draws a weighted random variant and persists the
assignment; repeat calls return the same variant. Use --no-persist for
a one-off draw that is not remembered.

Examples:
  abtest resolve checkout-button visitor-42
  abtest resolve checkout-button visitor-42 --no-persist`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

var resolveNoPersist bool

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveNoPersist, "no-persist", false, "Draw without storing the assignment")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	visitorID := args[1]

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := findTest(ctx, app.TestRepo, args[0])
	if err != nil {
		return err
	}

	variant, err := app.Engine.Resolve(ctx, test, visitorID, !resolveNoPersist)
	if err != nil {
		return fmt.Errorf("failed to resolve variant: %w", err)
	}

	fmt.Printf("Variant: %s\n", variant.ID)
	if variant.Payload != "" {
		fmt.Printf("Payload: %s\n", variant.Payload)
	}
	return nil
}
