package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pm33/abtest/internal/domain"
)

var reportCmd = &cobra.Command{
	Use:   "report <impression|conversion> <test> <variant-id> <visitor-id>",
	Short: "Record a tracking event",
	Long: `Record an impression or conversion for a visitor's variant.

The event is stored for reporting and forwarded to the analytics sink
when one is configured.

Examples:
  abtest report impression checkout-button green visitor-42
  abtest report conversion checkout-button green visitor-42 -p plan=pro -p source=email`,
	Args: cobra.ExactArgs(4),
	RunE: runReport,
}

var reportProperties []string

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringArrayVarP(&reportProperties, "property", "p", nil, "Extra event property as key=value (repeatable)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind := domain.EventKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown event kind %q, expected impression or conversion", args[0])
	}

	properties := make(map[string]string, len(reportProperties))
	for _, p := range reportProperties {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid property %q, expected key=value", p)
		}
		properties[k] = v
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := findTest(ctx, app.TestRepo, args[1])
	if err != nil {
		return err
	}
	variantID, visitorID := args[2], args[3]

	event, err := app.Analytics.RecordEvent(ctx, kind, test.ID, variantID, visitorID, properties)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	// Best effort forward to the external sink.
	app.Engine.Report(ctx, kind, test.ID, variantID, visitorID, properties)

	fmt.Printf("Recorded %s %s for test %s\n", kind, event.ID, test.Name)
	return nil
}
