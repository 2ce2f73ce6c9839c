package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validatePrint bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting any source.
With --print the effective configuration, defaults included, is written as YAML.

Examples:
  hbtap validate -c hbtap.yml
  hbtap validate -c hbtap.yml --print`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := revalidate(cfg); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !validatePrint {
			fmt.Fprintln(out, "configuration is valid")
			return nil
		}
		data, err := yaml.Marshal(map[string]interface{}{"hbtap": cfg})
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = out.Write(data)
		return err
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false, "print the effective configuration")
}
