package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jjenkins/classwatch/internal/config"
	"github.com/jjenkins/classwatch/internal/logger"
	"github.com/jjenkins/classwatch/internal/service"
	"github.com/jjenkins/classwatch/internal/telemetry"
)

var (
	configPath string

	cfg             *config.Config
	log             *slog.Logger
	shutdownTracing func(context.Context) error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "classwatch",
	Short: "Search Delta College classes and get told when seats open",
	Long: `classwatch reads terms, courses and sections from the collegescheduler
GraphQL service. It serves a small web app for searching courses and watching
sections, polls watched sections for seat changes, and answers one-off
lookups from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		log = logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(log)

		shutdownTracing, err = telemetry.Setup(cmd.Context(), telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it until it
// finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if shutdownTracing != nil {
		if serr := shutdownTracing(context.Background()); serr != nil {
			fmt.Fprintln(os.Stderr, "failed to flush traces:", serr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "classwatch.yaml", "Path to the YAML config file")
}

// newClient builds the scheduling service client from the loaded config
func newClient() (*service.SchedulerClient, error) {
	transport := service.NewGraphQLTransport(service.TransportConfig{
		URL:       cfg.Upstream.URL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
	})
	return service.NewSchedulerClient(transport, service.ClientConfig{
		Environment: cfg.Upstream.Environment,
		CacheSize:   cfg.Upstream.CacheSize,
		Logger:      log,
	})
}
