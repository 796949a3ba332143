package commands

import (
	"database/sql"
	"errors"

	"github.com/spf13/cobra"

	"github.com/protocolindex/projectsink/config"
	"github.com/protocolindex/projectsink/internal/indexer/sink/psql"
	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/version"
)

// MakeMigrateCommand returns the command applying the relational schema to
// the configured database.
func MakeMigrateCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if conf.Indexer.PsqlConn == "" {
				return errors.New("the psql connection settings cannot be empty")
			}
			db, err := sql.Open(psql.DriverName, conf.Indexer.PsqlConn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := psql.InitSchema(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("schema is up to date", "version", version.SchemaVersion)
			return nil
		},
	}
}
