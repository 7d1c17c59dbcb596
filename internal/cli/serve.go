package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pm33/abtest/internal/infrastructure/config"
	"github.com/pm33/abtest/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API used by sites and apps to resolve variants and
record tracking events.

Examples:
  abtest serve              # Start on default port 8080
  abtest serve --port 3000  # Start on port 3000`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := servePort
	if !cmd.Flags().Changed("port") {
		if cfg, err := config.LoadServer(); err == nil {
			port = cfg.Port
		}
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	server := web.NewServer(web.Deps{
		Tests:       app.TestRepo,
		Assignments: app.AssignmentRepo,
		Events:      app.EventRepo,
		Engine:      app.Engine,
		Analytics:   app.Analytics,
	}, port, app.Logger)
	return server.Start(ctx)
}
