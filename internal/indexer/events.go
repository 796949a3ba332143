package indexer

import (
	"fmt"
	"strings"
)

// EventType identifies an event batch produced by the classifier.
type EventType string

const (
	// EventProject carries outputs holding a project token.
	EventProject EventType = "project"
	// EventProjectDetail carries outputs holding a project detail token.
	EventProjectDetail EventType = "project_detail"
	// EventProjectScript carries outputs holding a project script token.
	EventProjectScript EventType = "project_script"

	// EventProjectScriptCeased signals that a project script token was
	// burned. It carries no indices.
	EventProjectScriptCeased EventType = "project_script$ceased"
)

// Event is a typed batch of output indices within one transaction.
type Event struct {
	Type    EventType
	Indices []int
}

func (ev Event) String() string {
	if len(ev.Indices) == 0 {
		return string(ev.Type)
	}
	parts := make([]string, len(ev.Indices))
	for i, idx := range ev.Indices {
		parts[i] = fmt.Sprint(idx)
	}
	return fmt.Sprintf("%s[%s]", ev.Type, strings.Join(parts, ","))
}
