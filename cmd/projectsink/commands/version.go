package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/protocolindex/projectsink/version"
)

var verbose bool

// VersionCmd prints the version of the binary.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}
		values, err := json.MarshalIndent(struct {
			Projectsink string `json:"projectsink"`
			Schema      string `json:"schema"`
			GitCommit   string `json:"git_commit,omitempty"`
		}{
			Projectsink: version.SemVer,
			Schema:      version.SchemaVersion,
			GitCommit:   version.GitCommit,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show schema and build versions")
}
