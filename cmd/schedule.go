package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/daybrief/config"
	"github.com/mohammad-safakhou/daybrief/internal/orchestrator"
)

func scheduleCMD() *cobra.Command {
	var cronSpec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the briefing pipeline on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := cronexpr.Parse(cronSpec)
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", cronSpec, err)
			}

			logger := log.New(os.Stdout, "", log.LstdFlags)

			cfg, err := config.LoadConfig()
			if err != nil {
				logger.Printf("[CRITICAL] %v", err)
				return err
			}

			orch, err := orchestrator.NewOrchestrator(cfg, logger)
			if err != nil {
				logger.Printf("[CRITICAL] %v", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for {
				next := expr.Next(time.Now())
				if next.IsZero() {
					return fmt.Errorf("cron expression %q has no future activation", cronSpec)
				}
				logger.Printf("[SCHEDULE] next run at %s", next.Format(time.RFC3339))

				timer := time.NewTimer(time.Until(next))
				select {
				case <-ctx.Done():
					timer.Stop()
					logger.Printf("[SCHEDULE] stopping")
					return nil
				case <-timer.C:
				}

				result, err := orch.Run(ctx)
				if err != nil {
					logger.Printf("[CRITICAL] run failed: %v", err)
					return err
				}
				fmt.Println("\n--- FINAL REPORT ---")
				fmt.Println(result.Report)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "0 7 * * *", "cron expression for briefing runs")
	return cmd
}
