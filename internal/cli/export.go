package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data to JSON or CSV",
	Long: `Export tracking data for external analysis.

Examples:
  abtest export events checkout-button --format json --output events.json
  abtest export events checkout-button --format csv
  abtest export stats checkout-button --format csv --output stats.csv`,
}

var exportEventsCmd = &cobra.Command{
	Use:   "events <test>",
	Short: "Export raw tracking events",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportEvents,
}

var exportStatsCmd = &cobra.Command{
	Use:   "stats <test>",
	Short: "Export per-variant statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportStats,
}

// Flags
var (
	exportFormat string
	exportOutput string
	exportLimit  int
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportEventsCmd)
	exportCmd.AddCommand(exportStatsCmd)

	exportCmd.PersistentFlags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json, csv")
	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportEventsCmd.Flags().IntVarP(&exportLimit, "limit", "n", 10000, "Maximum events to export")
}

type ExportEvent struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	TestID     string            `json:"test_id"`
	VariantID  string            `json:"variant_id"`
	VisitorID  string            `json:"visitor_id"`
	Timestamp  string            `json:"timestamp"`
	Properties map[string]string `json:"properties,omitempty"`
}

type ExportVariantStats struct {
	TestID         string  `json:"test_id"`
	VariantID      string  `json:"variant_id"`
	Impressions    int64   `json:"impressions"`
	Conversions    int64   `json:"conversions"`
	UniqueVisitors int64   `json:"unique_visitors"`
	ConversionRate float64 `json:"conversion_rate"`
}

func runExportEvents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := findTest(ctx, app.TestRepo, args[0])
	if err != nil {
		return err
	}

	events, err := app.EventRepo.ListByTest(ctx, test.ID, exportLimit)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	exportData := make([]ExportEvent, 0, len(events))
	for _, e := range events {
		exportData = append(exportData, ExportEvent{
			ID:         e.ID,
			Kind:       string(e.Kind),
			TestID:     e.TestID,
			VariantID:  e.VariantID,
			VisitorID:  e.VisitorID,
			Timestamp:  e.Timestamp.Format(time.RFC3339),
			Properties: e.Properties,
		})
	}

	return writeExport(exportFormat, exportOutput, exportData,
		[]string{"id", "kind", "test_id", "variant_id", "visitor_id", "timestamp"},
		func(writer *csv.Writer) error {
			for _, e := range exportData {
				row := []string{e.ID, e.Kind, e.TestID, e.VariantID, e.VisitorID, e.Timestamp}
				if err := writer.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
}

func runExportStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := findTest(ctx, app.TestRepo, args[0])
	if err != nil {
		return err
	}

	report, err := app.Analytics.Report(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	exportData := make([]ExportVariantStats, 0, len(report.Variants))
	for i := range report.Variants {
		vs := &report.Variants[i]
		exportData = append(exportData, ExportVariantStats{
			TestID:         vs.TestID,
			VariantID:      vs.VariantID,
			Impressions:    vs.Impressions,
			Conversions:    vs.Conversions,
			UniqueVisitors: vs.UniqueVisitors,
			ConversionRate: vs.ConversionRate(),
		})
	}

	return writeExport(exportFormat, exportOutput, exportData,
		[]string{"test_id", "variant_id", "impressions", "conversions", "unique_visitors", "conversion_rate"},
		func(writer *csv.Writer) error {
			for _, s := range exportData {
				row := []string{
					s.TestID, s.VariantID,
					fmt.Sprintf("%d", s.Impressions), fmt.Sprintf("%d", s.Conversions),
					fmt.Sprintf("%d", s.UniqueVisitors), fmt.Sprintf("%.6f", s.ConversionRate),
				}
				if err := writer.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
}

func writeExport(format, outputPath string, data any, csvHeader []string, writeRows func(*csv.Writer) error) error {
	var output *os.File
	var err error
	if outputPath != "" {
		output, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = output.Close() }()
	} else {
		output = os.Stdout
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "csv":
		writer := csv.NewWriter(output)
		defer writer.Flush()
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		if err := writeRows(writer); err != nil {
			return fmt.Errorf("failed to write CSV rows: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s (use json or csv)", format)
	}

	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", outputPath)
	}
	return nil
}
