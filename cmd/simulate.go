package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/app"
	"github.com/racekit/pacer/internal/supervisor"
)

// newSimulateCmd creates the 'simulate' subcommand. It spins up a batch of
// runners on the wall clock and waits for all of them to finish, which is
// handy for exercising the sink pipeline locally.
func newSimulateCmd() *cobra.Command {
	var (
		count   int
		maxP    int64
		inc     int64
		delayMs int64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a batch of runners to completion and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			defer a.Close()
			logger := a.Logger()
			sup := a.Supervisor()

			for i := 0; i < count; i++ {
				snap, err := sup.Create(supervisor.Spec{
					Name:              fmt.Sprintf("sim-%d", i),
					MaxProgress:       maxP,
					ProgressIncrement: inc,
					DelayInterval:     time.Duration(delayMs) * time.Millisecond,
				})
				if err != nil {
					return fmt.Errorf("create runner %d: %w", i, err)
				}
				if err := sup.Start(snap.ID); err != nil {
					return fmt.Errorf("start runner %d: %w", i, err)
				}
			}
			logger.Info("simulation started", zap.Int("runners", count))

			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					logger.Info("simulation interrupted")
					return nil
				case <-ticker.C:
					if remaining := activeCount(sup); remaining == 0 {
						logger.Info("simulation complete")
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&count, "runners", 5, "number of runners to launch")
	cmd.Flags().Int64Var(&maxP, "max-progress", 20, "target progress for each runner")
	cmd.Flags().Int64Var(&inc, "increment", 1, "progress added per tick")
	cmd.Flags().Int64Var(&delayMs, "delay-ms", 100, "milliseconds between ticks")
	return cmd
}

func activeCount(sup *supervisor.Supervisor) int {
	active := 0
	for _, snap := range sup.List() {
		if snap.Progress < snap.MaxProgress {
			active++
		}
	}
	return active
}
