package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/util"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Manage split tests",
	Long:  `Create, list, activate, and manage split tests and their weighted variants.`,
}

var testCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new test",
	Long: `Create a new test with weighted variants. The test starts active.

Examples:
  abtest test create "checkout-button" --variant control=1 --variant green=1
  abtest test create "pricing" -v monthly=3 -v 'annual=1:{"discount":20}' -d "Annual plan push"`,
	Args: cobra.ExactArgs(1),
	RunE: runTestCreate,
}

var testListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tests",
	RunE:  runTestList,
}

var testShowCmd = &cobra.Command{
	Use:   "show <test>",
	Short: "Show a test and its variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestShow,
}

var testActivateCmd = &cobra.Command{
	Use:   "activate <test>",
	Short: "Activate a test",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestActivate,
}

var testDeactivateCmd = &cobra.Command{
	Use:   "deactivate <test>",
	Short: "Deactivate a test",
	Long:  `Deactivate a test. Existing assignments are kept; resolving against an inactive test still works for callers that load it explicitly.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTestDeactivate,
}

var testDeleteCmd = &cobra.Command{
	Use:   "delete <test>",
	Short: "Delete a test",
	Long:  `Delete a test. Its variants and assignments are removed with it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTestDelete,
}

// Flags
var (
	testDescription string
	testVariants    []string
	testInactive    bool
)

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.AddCommand(testCreateCmd)
	testCmd.AddCommand(testListCmd)
	testCmd.AddCommand(testShowCmd)
	testCmd.AddCommand(testActivateCmd)
	testCmd.AddCommand(testDeactivateCmd)
	testCmd.AddCommand(testDeleteCmd)

	testCreateCmd.Flags().StringVarP(&testDescription, "description", "d", "", "Description of the test")
	testCreateCmd.Flags().StringArrayVarP(&testVariants, "variant", "v", nil, "Variant as id=weight[:payload] (repeatable)")
	testCreateCmd.Flags().BoolVar(&testInactive, "inactive", false, "Create the test without activating it")
}

func runTestCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if existing, err := app.TestRepo.GetByName(ctx, name); err == nil && existing != nil {
		return fmt.Errorf("test with name %q already exists", name)
	}

	variants := make([]domain.Variant, 0, len(testVariants))
	for _, spec := range testVariants {
		v, err := parseVariantSpec(spec)
		if err != nil {
			return err
		}
		variants = append(variants, v)
	}

	test := &domain.Test{
		ID:        uuid.New().String(),
		Name:      name,
		Variants:  variants,
		IsActive:  !testInactive,
		CreatedAt: time.Now().UTC(),
	}
	if testDescription != "" {
		test.Description = &testDescription
	}

	if err := test.Validate(); err != nil {
		return err
	}

	if err := app.TestRepo.Create(ctx, test); err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}

	fmt.Printf("Created test %s (%s) with %d variants\n", name, test.ID, len(variants))
	return nil
}

func runTestList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	tests, err := app.TestRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tests: %w", err)
	}

	if len(tests) == 0 {
		fmt.Println("No tests found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tVARIANTS\tWEIGHT\tCREATED")
	fmt.Fprintln(w, "----\t------\t--------\t------\t-------")

	for _, t := range tests {
		status := "inactive"
		if t.IsActive {
			status = "ACTIVE"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\n",
			t.Name, status, len(t.Variants), t.TotalWeight(), util.FormatDateTime(t.CreatedAt))
	}

	w.Flush()
	return nil
}

func runTestShow(cmd *cobra.Command, args []string) error {
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

	status := "inactive"
	if test.IsActive {
		status = "ACTIVE"
	}

	fmt.Println()
	fmt.Printf("  Test:     %s\n", test.Name)
	fmt.Printf("  ID:       %s\n", test.ID)
	fmt.Printf("  Status:   %s\n", status)
	if test.Description != nil && *test.Description != "" {
		fmt.Printf("  About:    %s\n", *test.Description)
	}
	fmt.Printf("  Created:  %s\n", util.FormatDateTime(test.CreatedAt))
	fmt.Println()

	total := test.TotalWeight()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  VARIANT\tWEIGHT\tSHARE\tPAYLOAD")
	fmt.Fprintln(w, "  -------\t------\t-----\t-------")
	for _, v := range test.Variants {
		share := "-"
		if total > 0 {
			share = util.FormatPercent(v.Weight / total)
		}
		fmt.Fprintf(w, "  %s\t%.2f\t%s\t%s\n", v.ID, v.Weight, share, truncate(v.Payload, 48))
	}
	w.Flush()
	fmt.Println()

	return nil
}

func runTestActivate(cmd *cobra.Command, args []string) error {
	return setTestActive(args[0], true)
}

func runTestDeactivate(cmd *cobra.Command, args []string) error {
	return setTestActive(args[0], false)
}

func setTestActive(ref string, active bool) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := findTest(ctx, app.TestRepo, ref)
	if err != nil {
		return err
	}

	if test.IsActive == active {
		fmt.Printf("Test %q is already %s\n", test.Name, statusWord(active))
		return nil
	}

	if active {
		err = app.TestRepo.Activate(ctx, test.ID)
	} else {
		err = app.TestRepo.Deactivate(ctx, test.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}

	fmt.Printf("Test %q is now %s\n", test.Name, statusWord(active))
	return nil
}

func statusWord(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func runTestDelete(cmd *cobra.Command, args []string) error {
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

	if err := app.TestRepo.Delete(ctx, test.ID); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if _, err := app.AssignmentRepo.DeleteByTest(ctx, test.ID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}

	fmt.Printf("Deleted test: %s\n", test.Name)
	return nil
}
