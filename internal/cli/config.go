package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencurrents/currents-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change client settings",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("server_url: %s\n", cfg.ServerURL)
		fmt.Printf("refresh_interval: %s\n", cfg.RefreshEvery())
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a setting",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		changed := false
		if cmd.Flags().Changed("server-url") {
			cfg.ServerURL, _ = cmd.Flags().GetString("server-url")
			changed = true
		}
		if cmd.Flags().Changed("refresh-interval") {
			cfg.RefreshInterval, _ = cmd.Flags().GetString("refresh-interval")
			changed = true
		}

		if !changed {
			return fmt.Errorf("nothing to set; pass --server-url or --refresh-interval")
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println("Config saved.")
		return nil
	},
}

func init() {
	configSetCmd.Flags().String("server-url", "", "Backend base URL")
	configSetCmd.Flags().String("refresh-interval", "", "Token renewal cadence, e.g. 3h30m")
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
