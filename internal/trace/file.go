// Package trace records which model elements produced which segments of a
// generated file, and which files a generation run touched.
package trace

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/parser"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// ElementInfo is the metadata recorded for a model element.
type ElementInfo struct {
	Name string
	Type string
}

// associationSink receives (model, file) associations. A TraceModel is the
// only implementation; the FileTraceModel never manages its lifetime.
type associationSink interface {
	AddTrace(modelID, fileName string)
}

// FileTraceModel holds the root segments of one file and the segments each
// model element contributed to it.
type FileTraceModel struct {
	fileName      string
	segments      []segment.Segment
	byID          map[string]segment.Segment
	model2Segment map[string][]segment.Segment
	elements      map[string]ElementInfo
	modelOrder    []string
	owner         associationSink
	logger        logging.Logger
}

// Option configures a FileTraceModel.
type Option func(*FileTraceModel)

// WithLogger sets the logger used for non-fatal conflicts.
func WithLogger(logger logging.Logger) Option {
	return func(f *FileTraceModel) {
		if logger != nil {
			f.logger = logger.WithComponent("trace")
		}
	}
}

// NewFileTraceModel creates an empty, unowned model for fileName.
func NewFileTraceModel(fileName string, opts ...Option) *FileTraceModel {
	f := &FileTraceModel{
		fileName:      fileName,
		byID:          make(map[string]segment.Segment),
		model2Segment: make(map[string][]segment.Segment),
		elements:      make(map[string]ElementInfo),
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FileName returns the name of the traced file.
func (f *FileTraceModel) FileName() string { return f.fileName }

// AddSegment appends a root segment. A root with the same id is replaced in
// place so each id has one canonical instance per file.
func (f *FileTraceModel) AddSegment(s segment.Segment) {
	if s == nil {
		return
	}
	if existing, ok := f.byID[s.ID()]; ok {
		if existing == s {
			return
		}
		for i, root := range f.segments {
			if root == existing {
				f.segments[i] = s
				f.byID[s.ID()] = s
				return
			}
		}
	}
	f.segments = append(f.segments, s)
	f.byID[s.ID()] = s
}

// AddSegments appends each segment in order.
func (f *FileTraceModel) AddSegments(segments ...segment.Segment) {
	for _, s := range segments {
		f.AddSegment(s)
	}
}

// Segments returns the root segments in registration order.
func (f *FileTraceModel) Segments() []segment.Segment {
	out := make([]segment.Segment, len(f.segments))
	copy(out, f.segments)
	return out
}

// Segment looks up a root segment by id.
func (f *FileTraceModel) Segment(id string) (segment.Segment, bool) {
	s, ok := f.byID[id]
	return s, ok
}

// RecursiveSegment looks up id among the roots first and then searches the
// whole tree depth-first.
func (f *FileTraceModel) RecursiveSegment(id string) (segment.Segment, bool) {
	if s, ok := f.byID[id]; ok {
		return s, true
	}
	for _, root := range f.segments {
		if s, ok := segment.Find(root, id); ok {
			return s, true
		}
	}
	return nil, false
}

// Index maps every id in the file's trees to its segment.
func (f *FileTraceModel) Index() map[string]segment.Segment {
	return segment.Index(f.segments...)
}

// AddTrace records that modelID contributed s. A nil segment is ignored.
// When modelID was already recorded with different metadata the first
// metadata is kept.
func (f *FileTraceModel) AddTrace(modelID, elementType, elementName string, s segment.Segment) {
	if s == nil {
		return
	}
	info := ElementInfo{Name: elementName, Type: elementType}
	if existing, ok := f.elements[modelID]; ok {
		if existing != info {
			f.logger.Warn(context.Background(), nil, "conflicting element metadata, keeping first",
				"model_id", modelID,
				"file", f.fileName,
				"kept_name", existing.Name,
				"kept_type", existing.Type,
				"ignored_name", elementName,
				"ignored_type", elementType)
		}
	} else {
		f.elements[modelID] = info
		f.modelOrder = append(f.modelOrder, modelID)
	}

	known := false
	for _, traced := range f.model2Segment[modelID] {
		if traced.ID() == s.ID() {
			known = true
			break
		}
	}
	if !known {
		f.model2Segment[modelID] = append(f.model2Segment[modelID], s)
	}

	if f.owner != nil {
		f.owner.AddTrace(modelID, f.fileName)
	}
}

// Traces returns the segments modelID contributed, in recording order.
func (f *FileTraceModel) Traces(modelID string) []segment.Segment {
	out := make([]segment.Segment, len(f.model2Segment[modelID]))
	copy(out, f.model2Segment[modelID])
	return out
}

// Element returns the metadata recorded for modelID.
func (f *FileTraceModel) Element(modelID string) (ElementInfo, bool) {
	info, ok := f.elements[modelID]
	return info, ok
}

// ModelIDs returns the traced model ids in first-recorded order.
func (f *FileTraceModel) ModelIDs() []string {
	out := make([]string, len(f.modelOrder))
	copy(out, f.modelOrder)
	return out
}

// Content renders the file by concatenating the roots.
func (f *FileTraceModel) Content() string {
	var b strings.Builder
	for _, s := range f.segments {
		b.WriteString(s.Content())
	}
	return b.String()
}

// FileTrace returns the wire form of the model.
func (f *FileTraceModel) FileTrace() *FileTrace {
	ft := &FileTrace{
		TraceSegments: make([]segment.Description, 0, len(f.segments)),
		Traces:        make(map[string]ElementTrace, len(f.modelOrder)),
	}
	for _, s := range f.segments {
		ft.TraceSegments = append(ft.TraceSegments, s.Describe())
	}
	for _, modelID := range f.modelOrder {
		info := f.elements[modelID]
		ids := make([]string, 0, len(f.model2Segment[modelID]))
		for _, s := range f.model2Segment[modelID] {
			ids = append(ids, s.ID())
		}
		ft.Traces[modelID] = ElementTrace{Name: info.Name, Type: info.Type, Segments: ids}
	}
	return ft
}

// MarshalJSON encodes the model as trace metadata.
func (f *FileTraceModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.FileTrace())
}

// FromFileTrace rebuilds a model from decoded trace metadata and the content
// the metadata was generated against.
func FromFileTrace(fileName string, ft *FileTrace, content string, opts ...Option) (*FileTraceModel, error) {
	if ft == nil {
		return nil, caeerrors.TraceDecode(fileName, errors.New("nil trace metadata"))
	}
	roots, err := parser.Reconstruct(ft.TraceSegments, content)
	if err != nil {
		return nil, withFile(err, fileName)
	}

	f := NewFileTraceModel(fileName, opts...)
	f.AddSegments(roots...)

	// map iteration order is random; sort for a stable model order
	modelIDs := make([]string, 0, len(ft.Traces))
	for modelID := range ft.Traces {
		modelIDs = append(modelIDs, modelID)
	}
	sort.Strings(modelIDs)

	for _, modelID := range modelIDs {
		et := ft.Traces[modelID]
		for _, id := range et.Segments {
			s, ok := f.RecursiveSegment(id)
			if !ok {
				return nil, caeerrors.SegmentNotFound(fileName, id).
					WithContext("model_id", modelID)
			}
			f.AddTrace(modelID, et.Type, et.Name, s)
		}
	}
	return f, nil
}

// LoadFileTraceModel decodes JSON trace metadata and rebuilds the model.
func LoadFileTraceModel(fileName string, data []byte, content string, opts ...Option) (*FileTraceModel, error) {
	ft, err := ParseFileTrace(data)
	if err != nil {
		return nil, withFile(err, fileName)
	}
	return FromFileTrace(fileName, ft, content, opts...)
}

func withFile(err error, fileName string) error {
	var ce *caeerrors.CAEError
	if errors.As(err, &ce) && ce.FilePath == "" {
		ce.WithLocation(fileName, ce.Offset)
	}
	return err
}
