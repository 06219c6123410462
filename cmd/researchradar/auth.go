package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ResearchRadar/internal/infrastructure/gdrive"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Renew the Google Drive OAuth token",
	Long: `Auth refreshes the cached Drive token. Without a usable refresh token it
prints a consent URL and stores the token obtained from the pasted
authorization code in drive.token_file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if _, err := gdrive.Renew(cmd.Context(), cfg.Drive.CredentialsFile, cfg.Drive.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("renew drive token: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
