package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/pldmfs/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `init writes a configuration file populated with the default values.
Without --config the file goes to the default location.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.InitConfigToPath(path, initForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}
