package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jjenkins/classwatch/internal/service"
	"github.com/jjenkins/classwatch/internal/store"
)

var notifyOnce bool
var notifySchedule string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Poll watched sections and report seats that open up",
	Long: `Notify re-fetches every watched section from the scheduling service,
stores a seat snapshot whenever the counts change, and tells each watcher
when a full section gets an open seat. Watchers are always logged and are
emailed when SMTP is configured.

Examples:
  # Poll once and exit
  ./classwatch notify --once

  # Poll every five minutes until interrupted
  ./classwatch notify --schedule "@every 5m"`,
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().BoolVar(&notifyOnce, "once", false, "Poll a single time and exit")
	notifyCmd.Flags().StringVar(&notifySchedule, "schedule", "", "Cron schedule overriding notify.schedule from config")
}

func runNotify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log.Info("connecting to database")
	db, err := store.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	// keep the interface nil when there is no SMTP host
	var mailer service.Mailer
	if m := service.NewSMTPMailer(service.SMTPConfig{
		Host:     cfg.Notify.SMTP.Host,
		Port:     cfg.Notify.SMTP.Port,
		Username: cfg.Notify.SMTP.Username,
		Password: cfg.Notify.SMTP.Password,
		From:     cfg.Notify.SMTP.From,
	}); m != nil {
		mailer = m
	} else {
		log.Warn("smtp is not configured, openings will only be logged")
	}

	notifier := service.NewNotifier(client, store.NewWatchStore(db), mailer, log)

	if notifyOnce {
		stats, err := notifier.Poll(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				log.Info("poll cancelled")
			}
			return fmt.Errorf("poll failed: %w", err)
		}
		notifier.PrintSummary(stats)
		if stats.Failed > 0 {
			return fmt.Errorf("%d sections failed to refresh", stats.Failed)
		}
		return nil
	}

	schedule := cfg.Notify.Schedule
	if notifySchedule != "" {
		schedule = notifySchedule
	}
	if err := notifier.Schedule(ctx, schedule); err != nil {
		return err
	}
	log.Info("notifier stopped", slog.String("reason", context.Cause(ctx).Error()))
	return nil
}
