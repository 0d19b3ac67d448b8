package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-disaster-v2v/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:       "run <job>",
	Short:     "Run one background job once and exit",
	Long:      "Runs refresh, analytics, cleanup or sweep a single time against the configured database.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{scheduler.JobRefresh, scheduler.JobAnalytics, scheduler.JobCleanup, scheduler.JobSweep},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runJob(ctx, args[0])
	},
}

func runJob(ctx context.Context, name string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.start(ctx)

	sched := scheduler.New()
	if err := scheduler.Register(sched, cfg, a.jobs()); err != nil {
		return err
	}
	return sched.RunNow(ctx, name)
}
