package project

import (
	"context"
	"fmt"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/types"
)

const kindProject = TableProject

// ProjectDecoder returns a Decoder for project outputs whose owner
// addresses are rendered for network.
func ProjectDecoder(network types.Network) Decoder {
	return func(out indexer.Output) (indexer.Row, error) {
		if len(out.Datum) == 0 {
			return indexer.Row{}, ErrNoDatum
		}
		d, err := DecodeProjectDatum(out.Datum)
		if err != nil {
			return indexer.Row{}, fmt.Errorf("decoding project datum: %w", err)
		}
		rec, err := NewRecord(d, network)
		if err != nil {
			return indexer.Row{}, fmt.Errorf("rendering owner address: %w", err)
		}
		return indexer.Row{
			Key:      rowKey(kindProject, rec.ProjectID),
			OutputID: out.ID,
			Record:   rec,
		}, nil
	}
}

// HandleProject stores a project batch and requests a summary refresh.
func (h *Handlers) HandleProject(ctx context.Context, tx *types.Tx, ev indexer.Event) error {
	return h.handle(ctx, tx, ev, batch{
		kind:   kindProject,
		decode: ProjectDecoder(h.network),
		effects: func([]indexer.Row) []indexer.Effect {
			return []indexer.Effect{indexer.RefreshEffect(indexer.ViewProjectSummary)}
		},
	})
}
