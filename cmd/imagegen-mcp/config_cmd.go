package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

var flagWriteConfig string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and environment
overrides are applied. The password is never printed.

  imagegen-mcp config                          # Print as YAML
  imagegen-mcp config --write ~/.imagegen.yaml # Save it as a config file`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().StringVarP(&flagWriteConfig, "write", "w", "", "Write the configuration to this file instead of printing it")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if flagWriteConfig != "" {
		if err := cfg.Save(flagWriteConfig); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", flagWriteConfig)
		return nil
	}

	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))

	dir, err := logging.GetLogDirectory()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# logs: %s\n", dir)
	return nil
}
