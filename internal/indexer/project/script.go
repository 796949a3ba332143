package project

import (
	"context"
	"fmt"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/types"
)

const kindScript = TableProjectScript

// DecodeScript decodes a project script output. The staking script hash
// is the hash of the output's reference script.
func DecodeScript(out indexer.Output) (indexer.Row, error) {
	if len(out.Datum) == 0 {
		return indexer.Row{}, ErrNoDatum
	}
	if out.ScriptHash == nil {
		return indexer.Row{}, ErrNoScriptRef
	}
	d, err := DecodeScriptDatum(out.Datum)
	if err != nil {
		return indexer.Row{}, fmt.Errorf("decoding project script datum: %w", err)
	}
	rec := &ScriptRecord{
		ProjectID:         d.ProjectID,
		StakingKeyDeposit: d.StakingKeyDeposit,
		StakingScriptHash: *out.ScriptHash,
	}
	return indexer.Row{
		Key:      rowKey(kindScript, rec.ProjectID),
		OutputID: out.ID,
		Record:   rec,
	}, nil
}

// HandleScript stores a script batch and watches the stake credential of
// every stored record.
func (h *Handlers) HandleScript(ctx context.Context, tx *types.Tx, ev indexer.Event) error {
	return h.handle(ctx, tx, ev, batch{
		kind:       kindScript,
		withScript: true,
		decode:     DecodeScript,
		effects:    scriptEffects,
	})
}

func scriptEffects(rows []indexer.Row) []indexer.Effect {
	effects := make([]indexer.Effect, 0, len(rows))
	for _, row := range rows {
		if rec, ok := row.Record.(*ScriptRecord); ok {
			effects = append(effects, indexer.WatchEffect(rec.StakingScriptHash, stakewatch.KindScript))
		}
	}
	return effects
}
