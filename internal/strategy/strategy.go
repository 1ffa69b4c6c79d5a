// Package strategy decides how segments of a previous generation are reused
// when a file is generated again.
package strategy

import (
	"fmt"
	"strings"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
)

// Names accepted by New.
const (
	NameOrdered   = "ordered"
	NameUnordered = "unordered"
)

// Strategy is a reuse policy. Lookup returns the previous generation's
// segment for an id; ReconcileOrder fixes the child order of appendable
// lists.
type Strategy interface {
	segment.Orderer
	Lookup(id string) (segment.Segment, bool)
	Name() string
}

// New returns the strategy called name over the previous generation of a
// file. previous may be nil for a first generation.
func New(name string, previous *trace.FileTraceModel) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameOrdered, "":
		return NewOrdered(previous), nil
	case NameUnordered:
		return NewUnordered(previous), nil
	default:
		return nil, caeerrors.ConfigurationError("generation.strategy",
			fmt.Sprintf("unknown strategy %q, want %s or %s", name, NameOrdered, NameUnordered), name)
	}
}

// Unordered reuses segments by id and keeps appendable lists in the order
// of this generation's append calls.
type Unordered struct {
	index map[string]segment.Segment
}

// NewUnordered snapshots the id index of previous.
func NewUnordered(previous *trace.FileTraceModel) *Unordered {
	u := &Unordered{index: map[string]segment.Segment{}}
	if previous != nil {
		u.index = previous.Index()
	}
	return u
}

// Name returns "unordered".
func (u *Unordered) Name() string { return NameUnordered }

// Lookup returns the previous segment with id.
func (u *Unordered) Lookup(id string) (segment.Segment, bool) {
	s, ok := u.index[id]
	return s, ok
}

// ReconcileOrder returns the appended ids unchanged.
func (u *Unordered) ReconcileOrder(_, appended []string) []string {
	out := make([]string, len(appended))
	copy(out, appended)
	return out
}

// Ordered reuses segments like Unordered but keeps the previous relative
// order of retained appendable entries and places new entries after them.
type Ordered struct {
	*Unordered
}

// NewOrdered snapshots the id index of previous.
func NewOrdered(previous *trace.FileTraceModel) *Ordered {
	return &Ordered{Unordered: NewUnordered(previous)}
}

// Name returns "ordered".
func (o *Ordered) Name() string { return NameOrdered }

// ReconcileOrder keeps the ids of previous that were appended again, in
// their previous order, followed by the ids that are new in this generation
// in append order.
func (o *Ordered) ReconcileOrder(previous, appended []string) []string {
	wanted := make(map[string]bool, len(appended))
	for _, id := range appended {
		wanted[id] = true
	}
	out := make([]string, 0, len(appended))
	placed := make(map[string]bool, len(appended))
	for _, id := range previous {
		if wanted[id] && !placed[id] {
			out = append(out, id)
			placed[id] = true
		}
	}
	for _, id := range appended {
		if !placed[id] {
			out = append(out, id)
			placed[id] = true
		}
	}
	return out
}
