// Package sink selects the indexer backend named in the configuration.
package sink

import (
	"errors"
	"strings"

	"github.com/protocolindex/projectsink/config"
	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/internal/indexer/sink/memory"
	"github.com/protocolindex/projectsink/internal/indexer/sink/psql"
	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/libs/log"
)

// FromConfig constructs the indexer.Sink described by cfg. Stake-watch
// registrations go to registry.
func FromConfig(cfg *config.Config, registry *stakewatch.Registry, logger log.Logger) (indexer.Sink, error) {
	switch strings.ToLower(cfg.Indexer.Sink) {
	case config.SinkMemory:
		return memory.NewSink(logger, registry), nil

	case config.SinkPSQL:
		conn := cfg.Indexer.PsqlConn
		if conn == "" {
			return nil, errors.New("the psql connection settings cannot be empty")
		}
		s, err := psql.NewSink(psql.SinkArgs{
			ConnString:      conn,
			Registry:        registry,
			RefreshInterval: cfg.Indexer.RefreshInterval,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, errors.New("unsupported event sink type")
	}
}
