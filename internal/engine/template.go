package engine

import (
	"fmt"
	"strings"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/parser"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// Template wraps the root composite of one template.
type Template struct {
	engine *Engine
	seg    *segment.CompositeSegment
	reused bool
	set    map[string]bool
}

// ID returns the template id.
func (t *Template) ID() string { return t.seg.ID() }

// Segment returns the root composite.
func (t *Template) Segment() *segment.CompositeSegment { return t.seg }

// Reused reports whether the root came from the previous generation.
func (t *Template) Reused() bool { return t.reused }

// Content renders the template.
func (t *Template) Content() string { return t.seg.Content() }

// SetVariable fills every occurrence of the placeholder name with value.
// name may be given with or without the surrounding '$'. Free-edit regions
// are only written on freshly parsed templates, so edits of a reused
// template survive.
func (t *Template) SetVariable(name, value string) error {
	name = placeholder(name)
	found := 0
	for i, child := range t.seg.Lookup(name) {
		found++
		switch s := child.(type) {
		case *segment.ContentSegment:
			if s.Protected() || !t.reused {
				s.SetContent(value)
			}
		default:
			t.seg.ReplaceChild(child, segment.NewProtected(t.occurrenceID(name, i), value))
		}
	}

	if !t.reused {
		for _, child := range t.seg.Children() {
			leaf, ok := child.(*segment.ContentSegment)
			if !ok || leaf.Protected() || !strings.Contains(leaf.Content(), name) {
				continue
			}
			leaf.SetContent(strings.ReplaceAll(leaf.Content(), name, value))
			found++
		}
	}

	if found == 0 {
		return caeerrors.PlaceholderNotFound(t.ID(), name)
	}
	t.set[name] = true
	return nil
}

// SetVariableIfNotSet fills name unless it was already filled in this run.
func (t *Template) SetVariableIfNotSet(name, value string) error {
	if t.set[placeholder(name)] {
		return nil
	}
	return t.SetVariable(name, value)
}

// IsSet reports whether name was filled in this run.
func (t *Template) IsSet(name string) bool {
	return t.set[placeholder(name)]
}

// SetTemplate nests sub at the placeholder name, which must occur exactly
// once.
func (t *Template) SetTemplate(name string, sub *Template) error {
	name = placeholder(name)
	if sub == nil {
		return caeerrors.NewInternalError(caeerrors.ErrCodeInternalError, "nil template", nil).
			WithComponent(t.ID())
	}
	sub = t.engine.canonical(sub)

	target, err := t.single(name)
	if err != nil {
		return err
	}
	if err := t.checkCycle(name, sub); err != nil {
		return err
	}
	t.seg.ReplaceChild(target, sub.seg)
	t.set[name] = true
	return nil
}

// AppendTemplate adds sub to the appendable list at the placeholder name,
// creating the list on first use. Appending an id that is already in the
// list returns the template already there.
func (t *Template) AppendTemplate(name string, sub *Template) (*Template, error) {
	name = placeholder(name)
	if sub == nil {
		return nil, caeerrors.NewInternalError(caeerrors.ErrCodeInternalError, "nil template", nil).
			WithComponent(t.ID())
	}
	sub = t.engine.canonical(sub)

	if err := t.checkCycle(name, sub); err != nil {
		return nil, err
	}
	list, err := t.list(name)
	if err != nil {
		return nil, err
	}

	entry := list.Append(sub.seg)
	t.set[name] = true
	if known, ok := t.engine.templates[entry.ID()]; ok {
		return known, nil
	}
	return sub, nil
}

// RemoveAppended drops the entry with id from the list at name. It reports
// whether the entry was present.
func (t *Template) RemoveAppended(name, id string) (bool, error) {
	name = placeholder(name)
	list, ok := t.engine.appendables[segment.ChildID(t.ID(), name)]
	if !ok {
		return false, caeerrors.PlaceholderNotFound(t.ID(), name)
	}
	return list.Remove(id), nil
}

// list returns the appendable segment at name, replacing the placeholder
// leaf or the previous generation's plain composite on first use.
func (t *Template) list(name string) (*segment.AppendableSegment, error) {
	target, err := t.single(name)
	if err != nil {
		return nil, err
	}
	if list, ok := target.(*segment.AppendableSegment); ok {
		return list, nil
	}
	list := t.engine.appendable(segment.ChildID(t.ID(), name))
	t.seg.ReplaceChild(target, list)
	return list, nil
}

func (t *Template) single(name string) (segment.Segment, error) {
	occurrences := t.seg.Lookup(name)
	switch len(occurrences) {
	case 0:
		return nil, caeerrors.PlaceholderNotFound(t.ID(), name)
	case 1:
		return occurrences[0], nil
	default:
		return nil, caeerrors.PlaceholderAmbiguous(t.ID(), name, len(occurrences))
	}
}

func (t *Template) checkCycle(name string, sub *Template) error {
	if sub.seg == t.seg {
		return caeerrors.TemplateCycle(t.ID(), name, sub.ID())
	}
	if _, ok := segment.Find(sub.seg, t.ID()); ok {
		return caeerrors.TemplateCycle(t.ID(), name, sub.ID())
	}
	return nil
}

func (t *Template) occurrenceID(name string, i int) string {
	if i == 0 {
		return segment.ChildID(t.ID(), name)
	}
	return segment.ChildID(t.ID(), fmt.Sprintf("%s[%d]", name, i))
}

func (t *Template) bind(other *Template) {
	t.engine = other.engine
	t.seg = other.seg
	t.reused = other.reused
	t.set = other.set
}

// placeholder normalizes Name and $Name$ to $Name$.
func placeholder(name string) string {
	if parser.IsPlaceholder(name) {
		return name
	}
	return "$" + strings.Trim(name, "$") + "$"
}
