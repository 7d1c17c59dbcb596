package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "abtest",
	Short: "A/B testing variant assignment and conversion tracking",
	Long: `abtest manages split tests: weighted variant assignment, sticky
visitor bucketing, and impression/conversion tracking.

Define tests with weighted variants, resolve which variant a visitor
sees, record tracking events, and read conversion reports with
statistical significance.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
