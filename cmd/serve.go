package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"

	"github.com/jjenkins/classwatch/internal/handlers"
	"github.com/jjenkins/classwatch/internal/service"
	"github.com/jjenkins/classwatch/internal/store"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classwatch web server",
	Long:  `Start the web server for searching courses and watching sections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The flag wins over config when given explicitly
		if !cmd.Flags().Changed("port") {
			port = cfg.Server.Port
		}

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

		app := fiber.New(fiber.Config{
			AppName:               "classwatch",
			DisableStartupMessage: true,
		})
		app.Use(logger.New(logger.Config{Output: os.Stderr}))

		handlers.Mount(app, handlers.Deps{
			Catalog:  client,
			Users:    store.NewUserStore(db),
			Watches:  store.NewWatchStore(db),
			Metrics:  service.NewMetricsService(db),
			Sessions: handlers.NewSessions(cfg.Server.SessionSecure, log),
			Logger:   log,
		})

		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			if err := app.Shutdown(); err != nil {
				log.Error("failed to shut down server", slog.Any("error", err))
			}
		}()

		log.Info("starting server", slog.String("port", port))
		if err := app.Listen(":" + port); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on")
}
