package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "portal-auth",
	Short: "Authentication and user management for the recruiting portal",
	Long: `portal-auth runs the portal authentication API: password login with
signed session tokens, role guarded user management scoped to each client
organization, and the integration status endpoint used after login.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command bound to ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
