package project

import (
	"context"
	"fmt"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/types"
)

const kindDetail = TableProjectDetail

// DecodeDetail decodes a project detail output.
func DecodeDetail(out indexer.Output) (indexer.Row, error) {
	if len(out.Datum) == 0 {
		return indexer.Row{}, ErrNoDatum
	}
	d, err := DecodeDetailDatum(out.Datum)
	if err != nil {
		return indexer.Row{}, fmt.Errorf("decoding project detail datum: %w", err)
	}
	rec := NewDetailRecord(d)
	return indexer.Row{
		Key:      rowKey(kindDetail, rec.ProjectID),
		OutputID: out.ID,
		Record:   rec,
	}, nil
}

// HandleDetail stores a detail batch, signals the off-chain fetcher and
// requests a summary refresh. Announcements are signalled only when a
// stored record carries one.
func (h *Handlers) HandleDetail(ctx context.Context, tx *types.Tx, ev indexer.Event) error {
	return h.handle(ctx, tx, ev, batch{
		kind:    kindDetail,
		decode:  DecodeDetail,
		effects: detailEffects,
	})
}

func detailEffects(rows []indexer.Row) []indexer.Effect {
	effects := []indexer.Effect{indexer.NotifyEffect(indexer.TopicInformationChanged)}
	for _, row := range rows {
		if rec, ok := row.Record.(*DetailRecord); ok && rec.HasAnnouncement() {
			effects = append(effects, indexer.NotifyEffect(indexer.TopicAnnouncementChanged))
			break
		}
	}
	return append(effects, indexer.RefreshEffect(indexer.ViewProjectSummary))
}
