package segment

// ContentSegment is a leaf holding literal text. Protected leaves are
// regenerated on every run; unprotected leaves are free-edit regions whose
// text survives regeneration.
type ContentSegment struct {
	id             string
	content        string
	protected      bool
	integrityCheck bool
}

// NewProtected creates a fixed leaf.
func NewProtected(id, content string) *ContentSegment {
	return &ContentSegment{id: id, content: content, protected: true}
}

// NewUnprotected creates a free-edit leaf. integrityCheck marks an id that
// was written explicitly in the template source.
func NewUnprotected(id, content string, integrityCheck bool) *ContentSegment {
	return &ContentSegment{id: id, content: content, integrityCheck: integrityCheck}
}

func (s *ContentSegment) isSegment() {}

// ID returns the segment id.
func (s *ContentSegment) ID() string { return s.id }

// Kind returns KindProtected or KindUnprotected.
func (s *ContentSegment) Kind() Kind {
	if s.protected {
		return KindProtected
	}
	return KindUnprotected
}

// Content returns the literal text.
func (s *ContentSegment) Content() string { return s.content }

// SetContent replaces the literal text.
func (s *ContentSegment) SetContent(content string) { s.content = content }

// Len returns the byte length of the content.
func (s *ContentSegment) Len() int { return len(s.content) }

// Protected reports whether the leaf is a fixed region.
func (s *ContentSegment) Protected() bool { return s.protected }

// IntegrityCheck reports whether a free-edit leaf's id was explicit.
func (s *ContentSegment) IntegrityCheck() bool { return !s.protected && s.integrityCheck }

// Describe returns the wire form. integrityCheck is only present on
// unprotected leaves.
func (s *ContentSegment) Describe() Description {
	d := Description{ID: s.id, Type: s.Kind(), Length: s.Len()}
	if !s.protected {
		check := s.integrityCheck
		d.IntegrityCheck = &check
	}
	return d
}
