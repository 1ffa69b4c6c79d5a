package segment

import "strings"

type child struct {
	name string
	seg  Segment
}

// CompositeSegment is an ordered sequence of children, each also reachable
// by its local name. Several children may share a name when a placeholder
// occurs more than once in a template.
type CompositeSegment struct {
	id       string
	children []child
}

// NewComposite creates an empty composite.
func NewComposite(id string) *CompositeSegment {
	return &CompositeSegment{id: id}
}

func (c *CompositeSegment) isSegment() {}

// ID returns the segment id.
func (c *CompositeSegment) ID() string { return c.id }

// Kind returns KindComposite.
func (c *CompositeSegment) Kind() Kind { return KindComposite }

// Add appends s under the local name.
func (c *CompositeSegment) Add(name string, s Segment) {
	if s == nil {
		return
	}
	c.children = append(c.children, child{name: name, seg: s})
}

// Children returns the children in render order.
func (c *CompositeSegment) Children() []Segment {
	out := make([]Segment, len(c.children))
	for i, ch := range c.children {
		out[i] = ch.seg
	}
	return out
}

// Names returns the local names in render order.
func (c *CompositeSegment) Names() []string {
	out := make([]string, len(c.children))
	for i, ch := range c.children {
		out[i] = ch.name
	}
	return out
}

// Lookup returns every child registered under name, in render order.
func (c *CompositeSegment) Lookup(name string) []Segment {
	var out []Segment
	for _, ch := range c.children {
		if ch.name == name {
			out = append(out, ch.seg)
		}
	}
	return out
}

// Child returns the first child registered under name.
func (c *CompositeSegment) Child(name string) (Segment, bool) {
	for _, ch := range c.children {
		if ch.name == name {
			return ch.seg, true
		}
	}
	return nil, false
}

// ReplaceChild swaps old for replacement, keeping old's position and local
// name. It reports whether old was a direct child.
func (c *CompositeSegment) ReplaceChild(old, replacement Segment) bool {
	if replacement == nil {
		return false
	}
	for i, ch := range c.children {
		if ch.seg == old {
			c.children[i].seg = replacement
			return true
		}
	}
	return false
}

// Find searches the subtree for id.
func (c *CompositeSegment) Find(id string) (Segment, bool) {
	return Find(c, id)
}

// Content concatenates the children's content.
func (c *CompositeSegment) Content() string {
	var b strings.Builder
	b.Grow(c.Len())
	for _, ch := range c.children {
		b.WriteString(ch.seg.Content())
	}
	return b.String()
}

// Len sums the children's lengths. It is recomputed on every call.
func (c *CompositeSegment) Len() int {
	n := 0
	for _, ch := range c.children {
		n += ch.seg.Len()
	}
	return n
}

// Describe returns the wire form including nested children.
func (c *CompositeSegment) Describe() Description {
	return Description{
		ID:       c.id,
		Type:     KindComposite,
		Length:   c.Len(),
		Segments: describeChildren(c.id, c.children, true),
	}
}
