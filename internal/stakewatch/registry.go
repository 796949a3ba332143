// Package stakewatch keeps the set of stake credentials whose delegation and
// reward activity downstream processors must track.
package stakewatch

import (
	"context"
	"fmt"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/types"
)

// Kind tells how a watched stake credential is controlled.
type Kind string

const (
	// KindKey marks a credential controlled by a verification key.
	KindKey Kind = "key"
	// KindScript marks a script-controlled credential.
	KindScript Kind = "script"
)

// Validate reports an error for unknown kinds.
func (k Kind) Validate() error {
	switch k {
	case KindKey, KindScript:
		return nil
	default:
		return fmt.Errorf("unknown stake credential kind %q", string(k))
	}
}

const watchPrefix = "stake_watch"

var registered = []byte{1}

// Registry is a stake-credential watch registry backed by a key/value
// database. Registration is idempotent.
//
// Safe for concurrent use by multiple goroutines.
type Registry struct {
	db     dbm.DB
	logger log.Logger
}

// NewRegistry returns a Registry that stores its entries in db.
func NewRegistry(db dbm.DB, logger log.Logger) *Registry {
	return &Registry{db: db, logger: logger}
}

// Watch registers hash under kind. Registering an already watched credential
// is a no-op.
func (r *Registry) Watch(ctx context.Context, hash types.Hash28, kind Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}

	key, err := watchKey(kind, hash)
	if err != nil {
		return err
	}

	ok, err := r.db.Has(key)
	if err != nil {
		return fmt.Errorf("checking stake watch %s: %w", hash, err)
	}
	if ok {
		r.logger.Debug("stake credential already watched", "hash", hash, "kind", kind)
		return nil
	}

	if err := r.db.SetSync(key, registered); err != nil {
		return fmt.Errorf("registering stake watch %s: %w", hash, err)
	}
	r.logger.Info("watching stake credential", "hash", hash, "kind", kind)
	return nil
}

// IsWatched reports whether hash is registered under kind.
func (r *Registry) IsWatched(hash types.Hash28, kind Kind) (bool, error) {
	key, err := watchKey(kind, hash)
	if err != nil {
		return false, err
	}
	return r.db.Has(key)
}

// List returns every credential registered under kind in key order.
func (r *Registry) List(kind Kind) ([]types.Hash28, error) {
	prefix, err := orderedcode.Append(nil, watchPrefix, string(kind))
	if err != nil {
		return nil, err
	}

	it, err := dbm.IteratePrefix(r.db, prefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []types.Hash28
	for ; it.Valid(); it.Next() {
		h, err := parseWatchKey(it.Key())
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error { return r.db.Close() }

func watchKey(kind Kind, hash types.Hash28) ([]byte, error) {
	return orderedcode.Append(
		nil,
		watchPrefix,
		string(kind),
		string(hash[:]),
	)
}

func parseWatchKey(key []byte) (types.Hash28, error) {
	var (
		prefix, kind, hash string
	)

	remaining, err := orderedcode.Parse(string(key), &prefix, &kind, &hash)
	if err != nil {
		return types.Hash28{}, fmt.Errorf("failed to parse stake watch key: %w", err)
	}
	if len(remaining) != 0 {
		return types.Hash28{}, fmt.Errorf("unexpected remainder in stake watch key: %q", remaining)
	}
	return types.Hash28FromBytes([]byte(hash))
}
