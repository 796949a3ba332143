package project

import (
	"fmt"
	"time"

	"github.com/protocolindex/projectsink/libs/plutus"
)

// StatusKind is the persisted project status literal.
type StatusKind string

const (
	StatusActive      StatusKind = "active"
	StatusPreClosed   StatusKind = "pre-closed"
	StatusPreDelisted StatusKind = "pre-delisted"
	StatusClosed      StatusKind = "closed"
	StatusDelisted    StatusKind = "delisted"
)

// StatusKinds lists every status literal in declaration order.
var StatusKinds = []StatusKind{
	StatusActive,
	StatusPreClosed,
	StatusPreDelisted,
	StatusClosed,
	StatusDelisted,
}

// ProjectStatus is the lifecycle state of a project. It is implemented by
// Active, PreClosed, PreDelisted, Closed and Delisted only.
type ProjectStatus interface {
	Kind() StatusKind
	isProjectStatus()
}

// Active is a live project.
type Active struct{}

// PreClosed is a project the owner asked to close; closing takes effect
// once PendingUntil passes.
type PreClosed struct {
	PendingUntil time.Time
}

// PreDelisted is a project the protocol is about to delist.
type PreDelisted struct {
	PendingUntil time.Time
}

// Closed is a project closed by its owner.
type Closed struct {
	ClosedAt time.Time
}

// Delisted is a project removed by the protocol.
type Delisted struct {
	DelistedAt time.Time
}

func (Active) Kind() StatusKind      { return StatusActive }
func (PreClosed) Kind() StatusKind   { return StatusPreClosed }
func (PreDelisted) Kind() StatusKind { return StatusPreDelisted }
func (Closed) Kind() StatusKind      { return StatusClosed }
func (Delisted) Kind() StatusKind    { return StatusDelisted }

func (Active) isProjectStatus()      {}
func (PreClosed) isProjectStatus()   {}
func (PreDelisted) isProjectStatus() {}
func (Closed) isProjectStatus()      {}
func (Delisted) isProjectStatus()    {}

// StatusTime returns the point in time carried by s: the pending-until
// deadline, the closing time or the delisting time. It returns nil for
// statuses without one.
func StatusTime(s ProjectStatus) *time.Time {
	var t time.Time
	switch s := s.(type) {
	case PreClosed:
		t = s.PendingUntil
	case PreDelisted:
		t = s.PendingUntil
	case Closed:
		t = s.ClosedAt
	case Delisted:
		t = s.DelistedAt
	default:
		return nil
	}
	return &t
}

func parseStatus(d plutus.Data) (ProjectStatus, error) {
	c, ok := d.(plutus.Constr)
	if !ok {
		return nil, fmt.Errorf("%w: expected status constr, got %T", plutus.ErrUnexpectedShape, d)
	}

	if c.Index == 0 {
		if _, err := plutus.AsConstr(c, 0, 0); err != nil {
			return nil, err
		}
		return Active{}, nil
	}
	if c.Index > 4 {
		return nil, fmt.Errorf("%w: unknown status constr %d", plutus.ErrUnexpectedShape, c.Index)
	}

	fields, err := plutus.AsConstr(c, c.Index, 1)
	if err != nil {
		return nil, err
	}
	t, err := parseTime(fields[0])
	if err != nil {
		return nil, err
	}

	switch c.Index {
	case 1:
		return PreClosed{PendingUntil: t}, nil
	case 2:
		return PreDelisted{PendingUntil: t}, nil
	case 3:
		return Closed{ClosedAt: t}, nil
	default:
		return Delisted{DelistedAt: t}, nil
	}
}
