package indexer

import (
	"fmt"
	"sort"

	"github.com/protocolindex/projectsink/types"
)

// TokenSet is an immutable set of asset units.
type TokenSet struct {
	units map[types.Unit]struct{}
}

// NewTokenSet parses and validates units. Duplicates are ignored.
func NewTokenSet(units ...string) (TokenSet, error) {
	set := TokenSet{units: make(map[types.Unit]struct{}, len(units))}
	for _, s := range units {
		unit, err := types.ParseUnit(s)
		if err != nil {
			return TokenSet{}, err
		}
		set.units[unit] = struct{}{}
	}
	return set, nil
}

// Contains reports whether unit is in the set.
func (s TokenSet) Contains(unit types.Unit) bool {
	_, ok := s.units[unit]
	return ok
}

// Len returns the number of units in the set.
func (s TokenSet) Len() int { return len(s.units) }

// Units returns the members in sorted order.
func (s TokenSet) Units() []types.Unit {
	out := make([]types.Unit, 0, len(s.units))
	for unit := range s.units {
		out = append(out, unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// matches reports whether the bundle holds any member of the set.
func (s TokenSet) matches(v types.Value) bool {
	if len(s.units) == 0 {
		return false
	}
	for unit, qty := range v.Assets {
		if qty == 0 {
			continue
		}
		if s.Contains(unit) {
			return true
		}
	}
	return false
}

// TokenSets holds the recognized protocol tokens of each record kind.
type TokenSets struct {
	Project TokenSet
	Detail  TokenSet
	Script  TokenSet
}

// NewTokenSets validates the three unit lists.
func NewTokenSets(project, detail, script []string) (TokenSets, error) {
	var (
		sets TokenSets
		err  error
	)
	if sets.Project, err = NewTokenSet(project...); err != nil {
		return TokenSets{}, fmt.Errorf("project tokens: %w", err)
	}
	if sets.Detail, err = NewTokenSet(detail...); err != nil {
		return TokenSets{}, fmt.Errorf("project detail tokens: %w", err)
	}
	if sets.Script, err = NewTokenSet(script...); err != nil {
		return TokenSets{}, fmt.Errorf("project script tokens: %w", err)
	}
	return sets, nil
}

// Classifier groups transaction outputs into typed event batches.
type Classifier struct {
	tokens TokenSets
}

// NewClassifier returns a classifier recognizing tokens.
func NewClassifier(tokens TokenSets) *Classifier {
	return &Classifier{tokens: tokens}
}

// Classify returns the events of tx: one batch per kind that matched at
// least one output, in the order project, detail, script, followed by a
// single ceased signal when any script token was burned.
//
// An output carrying tokens of several kinds is assigned to the first kind
// that matches.
func (c *Classifier) Classify(tx *types.Tx) []Event {
	var project, detail, script []int
	for i, out := range tx.Outputs {
		switch {
		case c.tokens.Project.matches(out.Value):
			project = append(project, i)
		case c.tokens.Detail.matches(out.Value):
			detail = append(detail, i)
		case c.tokens.Script.matches(out.Value):
			script = append(script, i)
		}
	}

	var events []Event
	if len(project) > 0 {
		events = append(events, Event{Type: EventProject, Indices: project})
	}
	if len(detail) > 0 {
		events = append(events, Event{Type: EventProjectDetail, Indices: detail})
	}
	if len(script) > 0 {
		events = append(events, Event{Type: EventProjectScript, Indices: script})
	}
	for unit, delta := range tx.Mint {
		if delta < 0 && c.tokens.Script.Contains(unit) {
			events = append(events, Event{Type: EventProjectScriptCeased})
			break
		}
	}
	return events
}
