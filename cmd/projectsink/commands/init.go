package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/protocolindex/projectsink/config"
	"github.com/protocolindex/projectsink/libs/log"
)

// MakeInitCommand returns the command writing a config file into the home
// directory.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file into the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFile(conf.RootDir)
			if _, err := os.Stat(path); err == nil {
				logger.Info("found config file", "path", path)
				return nil
			}
			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			logger.Info("generated config file", "path", path)
			return nil
		},
	}
}
