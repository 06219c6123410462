package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "researchradar",
	Short: "Find, rank and summarize recent papers and videos",
	Long: `ResearchRadar searches arXiv and YouTube for recent work on the configured
topics, keeps the relevant and unique results, ranks them and writes a report
with summaries of the top items.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (YAML or JSON); defaults to $RESEARCH_RADAR_CONFIG")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.New(os.Getenv("LOG_LEVEL"), "").Error("command failed", "command", commandName(), "error", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func commandName() string {
	cmd, _, err := rootCmd.Find(os.Args[1:])
	if err != nil || cmd == nil {
		return rootCmd.Name()
	}
	return cmd.Name()
}
