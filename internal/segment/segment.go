// Package segment defines the tree of rendered-text units the template
// engine works on. A tree is built from three closed variants: content
// leaves (protected or unprotected), composites with named children, and
// appendable composites holding an ordered list of sub-template roots.
//
// Identity is by id. Two segments with equal content but different ids are
// different segments; a segment keeps its id for its whole life.
package segment

import (
	"regexp"
	"strings"
)

// Kind is the serialized type tag of a segment.
type Kind string

const (
	KindComposite   Kind = "composite"
	KindProtected   Kind = "protected"
	KindUnprotected Kind = "unprotected"
)

// Separator joins a parent id and a child's local name into the child id.
const Separator = ":"

// Segment is implemented by *ContentSegment, *CompositeSegment and
// *AppendableSegment only.
type Segment interface {
	ID() string
	Kind() Kind
	// Content renders the segment.
	Content() string
	// Len is the byte length of Content.
	Len() int
	// Describe returns the serializable description of the segment.
	Describe() Description

	isSegment()
}

// Container is a segment with ordered children.
type Container interface {
	Segment
	Children() []Segment
}

// Description is the wire form of a segment inside trace metadata.
type Description struct {
	ID             string        `json:"id" msgpack:"id"`
	Name           string        `json:"name,omitempty" msgpack:"name,omitempty"`
	Type           Kind          `json:"type" msgpack:"type"`
	Length         int           `json:"length" msgpack:"length"`
	IntegrityCheck *bool         `json:"integrityCheck,omitempty" msgpack:"integrityCheck,omitempty"`
	Segments       []Description `json:"traceSegments,omitempty" msgpack:"traceSegments,omitempty"`
}

var indexSuffix = regexp.MustCompile(`\[\d+\]$`)

// ChildID builds the id of the child called name below parentID.
func ChildID(parentID, name string) string {
	return parentID + Separator + name
}

// NameFromID derives the local lookup name of a child from its id. Children
// of parentID carry ids of the form parentID:name or parentID:name[n]; any
// other id (a nested sub-template root) is its own name.
func NameFromID(parentID, id string) string {
	prefix := parentID + Separator
	if !strings.HasPrefix(id, prefix) {
		return id
	}
	return indexSuffix.ReplaceAllString(id[len(prefix):], "")
}

// Find searches root and its descendants depth-first for id.
func Find(root Segment, id string) (Segment, bool) {
	if root == nil {
		return nil, false
	}
	if root.ID() == id {
		return root, true
	}
	c, ok := root.(Container)
	if !ok {
		return nil, false
	}
	for _, child := range c.Children() {
		if found, ok := Find(child, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Walk visits root and its descendants in pre-order. Returning false from fn
// skips the children of the visited segment.
func Walk(root Segment, fn func(Segment) bool) {
	if root == nil || !fn(root) {
		return
	}
	if c, ok := root.(Container); ok {
		for _, child := range c.Children() {
			Walk(child, fn)
		}
	}
}

// Index maps every id in the given trees to its segment.
func Index(roots ...Segment) map[string]Segment {
	index := make(map[string]Segment)
	for _, root := range roots {
		Walk(root, func(s Segment) bool {
			if _, exists := index[s.ID()]; !exists {
				index[s.ID()] = s
			}
			return true
		})
	}
	return index
}

func describeChildren(parentID string, children []child, named bool) []Description {
	descs := make([]Description, 0, len(children))
	for _, c := range children {
		d := c.seg.Describe()
		if named && c.name != NameFromID(parentID, c.seg.ID()) {
			d.Name = c.name
		}
		descs = append(descs, d)
	}
	return descs
}
