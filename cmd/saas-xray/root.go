package main

import (
	"github.com/spf13/cobra"

	"github.com/singura/saas-xray/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "saas-xray",
	Short:         "SaaS X-Ray scores OAuth application risk and flags anomalous automations.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		execCtx := commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: commandUsesStructuredLogging(cmd),
		}
		setCommandExecutionContext(execCtx)

		if !execCtx.UsesStructuredLog {
			return nil
		}
		_, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: execCtx.CommandPath})
		return err
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, analyzeCmd, validateDetectionsCmd, scopesCmd, migrateCmd, versionCmd)
}
