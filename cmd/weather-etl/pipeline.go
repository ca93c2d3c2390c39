package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-etl/internal/notify"
	"github.com/i474232898/weather-etl/internal/weather"
)

type pipelineOptions struct {
	Recreate bool
	Hours    int
}

var (
	pipelineHours    int
	pipelineRecreate bool
	pipelineDryRun   bool
)

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&pipelineHours, "hours", -1, "hourly snapshots to back-fill per city (default BACKFILL_HOURS)")
	cmd.Flags().BoolVar(&pipelineRecreate, "recreate", true, "drop and recreate the tables first")
	cmd.Flags().BoolVar(&pipelineDryRun, "dry-run", false, "use an in-memory store instead of DB_URL")
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := newApplication(ctx, appConfig, log, appOptions{InMemory: pipelineDryRun})
	if err != nil {
		return err
	}
	defer app.close()

	if err := runPipeline(ctx, app.service, app.notifier, pipelineOptionsFromFlags(), log); err != nil {
		return err
	}
	log.Info("initial run finished")
	return nil
}

func pipelineOptionsFromFlags() pipelineOptions {
	hours := pipelineHours
	if hours < 0 {
		hours = appConfig.BackfillHours
	}
	return pipelineOptions{Recreate: pipelineRecreate, Hours: hours}
}

// runPipeline performs the one-shot sequence: recreate, seed, back-fill and one
// live fetch. The first failing stage is alerted and returned.
func runPipeline(ctx context.Context, svc *weather.Service, n notify.Notifier, opts pipelineOptions, logger *slog.Logger) error {
	if opts.Recreate {
		if err := stage(ctx, n, notify.StageRecreateTables, func() error {
			return svc.RecreateSchema(ctx)
		}); err != nil {
			return err
		}
	}

	if err := stage(ctx, n, notify.StageSeedLocations, func() error {
		return svc.SeedLocations(ctx, weather.DefaultLocations)
	}); err != nil {
		return err
	}

	if err := stage(ctx, n, notify.StageBackfill, func() error {
		res, err := svc.InsertBackdatedSnapshots(ctx, opts.Hours)
		logger.Info("inserted back-dated rows", "rows", res.Inserted, "hours", opts.Hours, "run_id", res.RunID)
		return err
	}); err != nil {
		return err
	}

	return stage(ctx, n, notify.StageETLOnce, func() error {
		_, err := svc.RunOnce(ctx)
		return err
	})
}

func stage(ctx context.Context, n notify.Notifier, name string, fn func() error) error {
	if err := fn(); err != nil {
		n.NotifyFailure(ctx, name, err)
		return err
	}
	return nil
}
