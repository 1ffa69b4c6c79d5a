package segment

import "strings"

// Orderer decides the final child order of an appendable segment from the
// ids it held in the previous generation and the ids appended in this one.
type Orderer interface {
	ReconcileOrder(previous, appended []string) []string
}

// AppendableSegment holds a dynamically sized list of sub-template roots,
// keyed by their ids. It serializes as a plain composite.
type AppendableSegment struct {
	id       string
	previous []string
	appended []string
	byID     map[string]Segment
	orderer  Orderer
	children []child
}

// NewAppendable creates an empty list. previous is the child order of the
// same list in the prior generation; orderer may be nil, in which case the
// append order is kept.
func NewAppendable(id string, previous []string, orderer Orderer) *AppendableSegment {
	return &AppendableSegment{
		id:       id,
		previous: append([]string(nil), previous...),
		byID:     make(map[string]Segment),
		orderer:  orderer,
	}
}

func (a *AppendableSegment) isSegment() {}

// ID returns the segment id.
func (a *AppendableSegment) ID() string { return a.id }

// Kind returns KindComposite.
func (a *AppendableSegment) Kind() Kind { return KindComposite }

// Append adds s keyed by its id. Appending an id that is already present
// returns the existing entry and changes nothing.
func (a *AppendableSegment) Append(s Segment) Segment {
	if s == nil {
		return nil
	}
	if existing, ok := a.byID[s.ID()]; ok {
		return existing
	}
	a.byID[s.ID()] = s
	a.appended = append(a.appended, s.ID())
	a.reorder()
	return s
}

// Remove drops the entry with id.
func (a *AppendableSegment) Remove(id string) bool {
	if _, ok := a.byID[id]; !ok {
		return false
	}
	delete(a.byID, id)
	for i, appendedID := range a.appended {
		if appendedID == id {
			a.appended = append(a.appended[:i], a.appended[i+1:]...)
			break
		}
	}
	a.reorder()
	return true
}

// SetSegments replaces the whole list.
func (a *AppendableSegment) SetSegments(segments []Segment) {
	a.byID = make(map[string]Segment, len(segments))
	a.appended = a.appended[:0]
	for _, s := range segments {
		if s == nil {
			continue
		}
		if _, dup := a.byID[s.ID()]; dup {
			continue
		}
		a.byID[s.ID()] = s
		a.appended = append(a.appended, s.ID())
	}
	a.reorder()
}

// Get returns the entry with id.
func (a *AppendableSegment) Get(id string) (Segment, bool) {
	s, ok := a.byID[id]
	return s, ok
}

// Previous returns the prior generation's child order.
func (a *AppendableSegment) Previous() []string {
	return append([]string(nil), a.previous...)
}

// Appended returns the ids in the order they were appended in this run.
func (a *AppendableSegment) Appended() []string {
	return append([]string(nil), a.appended...)
}

// Children returns the entries in render order.
func (a *AppendableSegment) Children() []Segment {
	out := make([]Segment, len(a.children))
	for i, ch := range a.children {
		out[i] = ch.seg
	}
	return out
}

// Content concatenates the entries' content.
func (a *AppendableSegment) Content() string {
	var b strings.Builder
	for _, ch := range a.children {
		b.WriteString(ch.seg.Content())
	}
	return b.String()
}

// Len sums the entries' lengths.
func (a *AppendableSegment) Len() int {
	n := 0
	for _, ch := range a.children {
		n += ch.seg.Len()
	}
	return n
}

// Describe returns the wire form. Appendable lists are plain composites on
// the wire; entries are named by their ids.
func (a *AppendableSegment) Describe() Description {
	return Description{
		ID:       a.id,
		Type:     KindComposite,
		Length:   a.Len(),
		Segments: describeChildren(a.id, a.children, true),
	}
}

func (a *AppendableSegment) reorder() {
	order := a.appended
	if a.orderer != nil {
		order = a.orderer.ReconcileOrder(a.previous, a.appended)
	}
	a.children = a.children[:0]
	for _, id := range order {
		if s, ok := a.byID[id]; ok {
			a.children = append(a.children, child{name: id, seg: s})
		}
	}
}
