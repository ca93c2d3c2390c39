package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-etl/internal/api/http"
	"github.com/i474232898/weather-etl/internal/scheduler"
)

var serveWithSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the observation history, stats and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWithSchedule, "schedule", false, "also run the live ETL every SCHEDULE_INTERVAL_MINUTES")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Wait for termination signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, appConfig, log, appOptions{ReadOnly: !serveWithSchedule})
	if err != nil {
		return err
	}
	defer app.close()

	if serveWithSchedule {
		sched := scheduler.New(app.service, app.notifier, appConfig.Interval(), log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	server := httpapi.NewApp(app.service, log)

	go func() {
		log.Info("http server listening", "port", appConfig.Port)
		if err := server.Listen(":" + appConfig.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}
