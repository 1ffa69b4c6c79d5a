package parser

import (
	"fmt"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// Reconstruct rebuilds root segments from their descriptions and the content
// they were generated against. Leaves consume their length from a running
// cursor; composites recurse into their children. The descriptions must
// cover content exactly.
func Reconstruct(descs []segment.Description, content string) ([]segment.Segment, error) {
	r := &reconstructor{content: content}
	roots := make([]segment.Segment, 0, len(descs))
	for _, d := range descs {
		s, err := r.build(d)
		if err != nil {
			return nil, err
		}
		roots = append(roots, s)
	}
	if r.cursor != len(content) {
		return nil, caeerrors.TraceMismatch("", r.cursor, len(content))
	}
	return roots, nil
}

type reconstructor struct {
	content string
	cursor  int
}

func (r *reconstructor) build(d segment.Description) (segment.Segment, error) {
	switch d.Type {
	case segment.KindComposite:
		c := segment.NewComposite(d.ID)
		start := r.cursor
		for _, childDesc := range d.Segments {
			child, err := r.build(childDesc)
			if err != nil {
				return nil, err
			}
			name := childDesc.Name
			if name == "" {
				name = segment.NameFromID(d.ID, childDesc.ID)
			}
			c.Add(name, child)
		}
		if consumed := r.cursor - start; consumed != d.Length {
			return nil, caeerrors.TraceMismatch("", d.Length, consumed).
				WithContext("segment_id", d.ID)
		}
		return c, nil

	case segment.KindProtected, segment.KindUnprotected:
		text, err := r.take(d)
		if err != nil {
			return nil, err
		}
		if d.Type == segment.KindProtected {
			return segment.NewProtected(d.ID, text), nil
		}
		integrity := d.IntegrityCheck != nil && *d.IntegrityCheck
		return segment.NewUnprotected(d.ID, text, integrity), nil

	default:
		return nil, caeerrors.TraceDecode("", fmt.Errorf("segment %s has unknown type %q", d.ID, d.Type))
	}
}

func (r *reconstructor) take(d segment.Description) (string, error) {
	if d.Length < 0 || r.cursor+d.Length > len(r.content) {
		return "", caeerrors.TraceMismatch("", r.cursor+d.Length, len(r.content)).
			WithContext("segment_id", d.ID)
	}
	text := r.content[r.cursor : r.cursor+d.Length]
	r.cursor += d.Length
	return text, nil
}
