package cli

import (
	"fmt"

	"github.com/harrisonrobin/qplan/pkg/auth"
	"github.com/harrisonrobin/qplan/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Sheets in the browser",
	Long: `Run the OAuth browser flow and store a fresh token.

Not needed when credentials.service_account points at a service-account key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, err := auth.Reauthorize(cmd.Context(), cfg.Credentials, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Modify qplan configuration",
}

var configSetSpreadsheetCmd = &cobra.Command{
	Use:   "set-spreadsheet <title>",
	Short: "Set the default spreadsheet title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.ConfigFileUsed()
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		if err := config.Save(path, "spreadsheet.title", args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default spreadsheet set to: %s\n", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.ConfigFileUsed()
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetSpreadsheetCmd, configPathCmd)
	rootCmd.AddCommand(authCmd, configCmd)
}
