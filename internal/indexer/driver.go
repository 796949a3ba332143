// Package indexer defines the contracts between the project materializer and
// the chain-sync driver, and implements the per-transaction pipeline that
// classifies outputs, dispatches handlers and runs their side effects.
package indexer

import (
	"context"

	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/libs/service"
	"github.com/protocolindex/projectsink/types"
)

// Topic names a fire-and-forget notification channel.
type Topic string

const (
	// TopicInformationChanged asks the off-chain fetcher to reload project
	// information documents.
	TopicInformationChanged Topic = "information_changed"
	// TopicAnnouncementChanged asks the off-chain fetcher to reload
	// announcement documents.
	TopicAnnouncementChanged Topic = "announcement_changed"
)

// View names a materialized view maintained by the storage layer.
type View string

// ViewProjectSummary is the per-project summary view.
const ViewProjectSummary View = "project_summary"

// Record is a typed row destined for one relation. Columns and Values are
// parallel and exclude the primary key.
type Record interface {
	Table() string
	Columns() []string
	Values() []interface{}
}

// Row is a decoded record together with its keys.
type Row struct {
	// Key is the logical key "<kind>:<projectId>" used to deduplicate
	// records within one batch.
	Key string

	// OutputID is the surrogate id of the carrying output and becomes the
	// row's primary key.
	OutputID int64

	Record Record
}

// Output is the view of a transaction output handed to a DecodeFunc.
type Output struct {
	*types.Output

	// Index is the position of the output in the transaction.
	Index int

	// ScriptHash is the hash of the output's reference script. It is only
	// populated by StoreWithScript, and nil when the output carries none.
	ScriptHash *types.Hash28
}

// DecodeFunc turns one output into a row. It reports false when the output
// is not eligible, in which case it is dropped from the batch.
type DecodeFunc func(Output) (Row, bool)

// Driver is the storage and signaling surface exposed by the chain-sync
// driver.
type Driver interface {
	// Store decodes the outputs at indices, drops ineligible ones, folds
	// rows sharing a key (last one wins), persists the result and returns
	// the persisted rows. Inserting an existing primary key is a no-op.
	Store(ctx context.Context, tx *types.Tx, indices []int, decode DecodeFunc) ([]Row, error)

	// StoreWithScript is Store with the reference script hash of each
	// output resolved before decoding.
	StoreWithScript(ctx context.Context, tx *types.Tx, indices []int, decode DecodeFunc) ([]Row, error)

	// Notify signals downstream listeners on topic.
	Notify(ctx context.Context, topic Topic) error

	// Refresh requests a refresh of view.
	Refresh(ctx context.Context, view View) error

	// Watch registers a stake credential for downstream tracking.
	Watch(ctx context.Context, hash types.Hash28, kind stakewatch.Kind) error
}

// OutputStore records the outputs of a transaction before its events are
// handled, so that rows can reference them.
type OutputStore interface {
	EnsureOutputs(ctx context.Context, tx *types.Tx) error
}

// Sink is a Driver with a lifecycle.
type Sink interface {
	Driver
	service.Service
}

// Collect decodes the outputs at indices and folds rows sharing a key. A
// later row replaces an earlier one in place, so the result keeps the order
// in which keys first appeared. When withScript is set the reference script
// hash of each output is resolved first. Indices that do not refer to an
// output are skipped.
func Collect(tx *types.Tx, indices []int, withScript bool, decode DecodeFunc) []Row {
	var (
		rows []Row
		seen = make(map[string]int, len(indices))
	)
	for _, idx := range indices {
		out, err := tx.Output(idx)
		if err != nil {
			continue
		}

		in := Output{Output: out, Index: idx}
		if withScript && out.Script != nil {
			hash := out.Script.Hash()
			in.ScriptHash = &hash
		}

		row, ok := decode(in)
		if !ok {
			continue
		}
		if pos, ok := seen[row.Key]; ok {
			rows[pos] = row
			continue
		}
		seen[row.Key] = len(rows)
		rows = append(rows, row)
	}
	return rows
}
