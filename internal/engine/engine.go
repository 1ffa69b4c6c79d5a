// Package engine builds the segment trees of generated files from templates
// and reuses the trees of a previous generation through a strategy.
package engine

import (
	"context"
	"encoding/json"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/parser"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/strategy"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
)

// State is the resolution state of a template id within one run.
type State int

const (
	// StateNotRequested means no template was created for the id yet.
	StateNotRequested State = iota
	// StateReused means the previous generation's segment was taken over.
	StateReused
	// StateFresh means the segment was parsed from template source.
	StateFresh
)

func (s State) String() string {
	switch s {
	case StateReused:
		return "reused"
	case StateFresh:
		return "fresh"
	default:
		return "not-requested"
	}
}

// Engine generates one file. It is not safe for concurrent use; concurrent
// runs use separate engines.
type Engine struct {
	strategy    strategy.Strategy
	file        *trace.FileTraceModel
	logger      logging.Logger
	templates   map[string]*Template
	appendables map[string]*segment.AppendableSegment
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.WithComponent("engine")
		}
	}
}

// New creates an engine writing into file. A nil strategy is an ordered
// strategy without a previous generation.
func New(s strategy.Strategy, file *trace.FileTraceModel, opts ...Option) *Engine {
	if s == nil {
		s = strategy.NewOrdered(nil)
	}
	if file == nil {
		file = trace.NewFileTraceModel("")
	}
	e := &Engine{
		strategy:    s,
		file:        file,
		logger:      logging.NewNop(),
		templates:   make(map[string]*Template),
		appendables: make(map[string]*segment.AppendableSegment),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the reuse policy of the engine.
func (e *Engine) Strategy() strategy.Strategy { return e.strategy }

// FileTraceModel returns the model the engine writes into.
func (e *Engine) FileTraceModel() *trace.FileTraceModel { return e.file }

// CreateTemplate returns the template with id. An id resolved earlier in
// this run returns the same template. Otherwise a composite of the previous
// generation is reused as is, ignoring source; any other outcome parses
// source.
func (e *Engine) CreateTemplate(id, source string) (*Template, error) {
	if t, ok := e.templates[id]; ok {
		return t, nil
	}

	if previous, ok := e.strategy.Lookup(id); ok {
		if c, isComposite := previous.(*segment.CompositeSegment); isComposite {
			e.logger.Debug(context.Background(), "reusing template", "template_id", id)
			return e.register(c, true), nil
		}
		e.logger.Warn(context.Background(), nil, "strategy mismatch, discarding previous segment",
			"segment_id", id,
			"previous_kind", string(previous.Kind()),
			"strategy", e.strategy.Name())
	}

	root, err := parser.Parse(id, source)
	if err != nil {
		return nil, err
	}
	return e.register(root, false), nil
}

// AddTemplate appends the template's root to the file. A template whose id
// already resolved to another segment is rebound to that segment first.
func (e *Engine) AddTemplate(t *Template) {
	if t == nil {
		return
	}
	e.file.AddSegment(e.canonical(t).seg)
}

// AddTrace records that modelID contributed s to the file.
func (e *Engine) AddTrace(modelID, elementType, elementName string, s segment.Segment) {
	if s == nil {
		return
	}
	e.file.AddTrace(modelID, elementType, elementName, s)
}

// AddTemplateTrace records that modelID contributed the template's root.
func (e *Engine) AddTemplateTrace(modelID, elementType, elementName string, t *Template) {
	if t == nil {
		return
	}
	e.file.AddTrace(modelID, elementType, elementName, e.canonical(t).seg)
}

// Content renders the file.
func (e *Engine) Content() string { return e.file.Content() }

// FileTrace returns the file's trace metadata.
func (e *Engine) FileTrace() *trace.FileTrace { return e.file.FileTrace() }

// TraceMetadata encodes the file's trace metadata as JSON.
func (e *Engine) TraceMetadata() ([]byte, error) {
	return json.Marshal(e.file)
}

// State reports how id was resolved in this run.
func (e *Engine) State(id string) State {
	t, ok := e.templates[id]
	if !ok {
		return StateNotRequested
	}
	if t.reused {
		return StateReused
	}
	return StateFresh
}

func (e *Engine) register(root *segment.CompositeSegment, reused bool) *Template {
	t := &Template{
		engine: e,
		seg:    root,
		reused: reused,
		set:    make(map[string]bool),
	}
	e.templates[root.ID()] = t
	return t
}

// canonical returns the one template this engine holds for t's id, binding
// t to it.
func (e *Engine) canonical(t *Template) *Template {
	if known, ok := e.templates[t.ID()]; ok {
		if known != t {
			t.bind(known)
		}
		return known
	}
	if previous, ok := e.strategy.Lookup(t.ID()); ok {
		if c, isComposite := previous.(*segment.CompositeSegment); isComposite && c != t.seg {
			t.seg = c
			t.reused = true
		}
	}
	t.engine = e
	e.templates[t.ID()] = t
	return t
}

// appendable returns the list registered under id, creating it with the
// previous generation's child order on first use.
func (e *Engine) appendable(id string) *segment.AppendableSegment {
	if list, ok := e.appendables[id]; ok {
		return list
	}
	var previous []string
	if old, ok := e.strategy.Lookup(id); ok {
		if c, isContainer := old.(segment.Container); isContainer {
			for _, child := range c.Children() {
				previous = append(previous, child.ID())
			}
		}
	}
	list := segment.NewAppendable(id, previous, e.strategy)
	e.appendables[id] = list
	return list
}
