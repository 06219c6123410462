package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ResearchRadar/internal/app"
	"ResearchRadar/internal/logging"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline now and then every schedule.interval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Schedule(cmd.Context()); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
