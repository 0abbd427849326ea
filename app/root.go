// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "silk-admin",
	Short: "silk-admin is the admin backend for the silk CMS",
	Long: `silk-admin is the admin backend for the silk CMS
that provides a token-authenticated JSON API for managing users,
roles, permissions and multi-language web content.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
