package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ResearchRadar/internal/app"
	"ResearchRadar/internal/config"
	"ResearchRadar/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the research pipeline once",
	Long: `Run searches every configured source, ranks the results and writes
research_results_<date>.json and research_report_<date>.md into
<output.dir>/research_<date>/. Flags override the config file.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().Int("days", 0, "days to look back (overrides days_back)")
	runCmd.Flags().Int("top", 0, "number of top papers to summarize (overrides top_papers)")
	runCmd.Flags().Int("top-videos", 0, "number of top videos to summarize (overrides top_videos)")
	runCmd.Flags().String("model", "", "summarizer provider: gemini, openai, kimi or template")
	runCmd.Flags().String("api-key", "", "API key for the summarizer provider")

	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Apply(overridesFromFlags(cmd)); err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx := cmd.Context()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	res, err := application.Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d papers, %d videos, %d degraded\nReport: %s\n",
		res.Report.RunID, len(res.Report.Papers), len(res.Report.Videos), len(res.Report.Degraded), res.Paths.Markdown)
	return nil
}

func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	intFlag := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}
	stringFlag := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}

	o.DaysBack = intFlag("days")
	o.TopPapers = intFlag("top")
	o.TopVideos = intFlag("top-videos")
	o.Provider = stringFlag("model")
	o.APIKey = stringFlag("api-key")
	return o
}
