package cmd

import (
	"fmt"

	"secanalytics/bootstrap"
	"secanalytics/config"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration and generate secrets",
	}
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigValidateCmd())
	configCmd.AddCommand(newGenSecretCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), cfg.Masked())
			}
			return outputAsYAML(cmd.OutOrStdout(), cfg.Masked())
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				errorColor.Fprintln(cmd.ErrOrStderr(), "✗ Configuration is invalid")
				return err
			}
			successColor.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
			if !quiet {
				printField(cmd.OutOrStdout(), "Backend", cfg.Backend.URL)
				printField(cmd.OutOrStdout(), "Refresh range", cfg.Refresh.Start+" .. "+cfg.Refresh.End)
				printField(cmd.OutOrStdout(), "Refresh interval", cfg.Refresh.Interval.String())
			}
			return nil
		},
	}
}

func newGenSecretCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate a random secret for auth.jwt_secret or auth.password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := bootstrap.GenerateSecurePassword(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			if !quiet {
				infoColor.Fprintf(cmd.ErrOrStderr(), "Set it with %s_AUTH_JWT_SECRET or in config.yaml\n", config.EnvPrefix)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", 48, "Secret length (minimum 32)")
	return cmd
}
