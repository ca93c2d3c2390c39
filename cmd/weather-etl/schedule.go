package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-etl/internal/scheduler"
)

var (
	scheduleSkipInit bool
	scheduleInterval int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Initialize, then run the live ETL on a fixed interval until interrupted",
	Long: `Runs the one-shot pipeline (unless --skip-init), then one live fetch per
interval. Failed scheduled runs are alerted and the loop keeps going.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	addPipelineFlags(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleSkipInit, "skip-init", false, "keep existing tables and rows; go straight to the loop")
	scheduleCmd.Flags().IntVar(&scheduleInterval, "interval", 0, "minutes between runs (default SCHEDULE_INTERVAL_MINUTES)")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, appConfig, log, appOptions{InMemory: pipelineDryRun})
	if err != nil {
		return err
	}
	defer app.close()

	if !scheduleSkipInit {
		// initialization failures are fatal before the loop starts
		if err := runPipeline(ctx, app.service, app.notifier, pipelineOptionsFromFlags(), log); err != nil {
			return err
		}
	}

	interval := appConfig.Interval()
	if scheduleInterval > 0 {
		interval = time.Duration(scheduleInterval) * time.Minute
	}
	return scheduler.New(app.service, app.notifier, interval, log).Run(ctx)
}
