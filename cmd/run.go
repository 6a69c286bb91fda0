package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/daybrief/config"
	"github.com/mohammad-safakhou/daybrief/internal/orchestrator"
)

func runCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one briefing pipeline invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			result, err := orch.Run(ctx)
			if err != nil {
				logger.Printf("[CRITICAL] run failed: %v", err)
				return err
			}

			fmt.Println("\n--- FINAL REPORT ---")
			fmt.Println(result.Report)
			for _, outcome := range result.Outcomes {
				logger.Printf("[DISPATCH] %s: %s %s", outcome.Channel, outcome.Status, outcome.Detail)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
