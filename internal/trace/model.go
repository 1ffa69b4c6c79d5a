package trace

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TraceModel correlates the files of one generation run. It owns every
// FileTraceModel created or registered through it.
type TraceModel struct {
	id           string
	files        map[string]*FileTraceModel
	fileOrder    []string
	modelsToFile map[string][]string
	modelOrder   []string
	opts         []Option
}

// NewTraceModel starts a run with a fresh correlation id. opts are applied
// to every FileTraceModel the run creates.
func NewTraceModel(opts ...Option) *TraceModel {
	return &TraceModel{
		id:           uuid.NewString(),
		files:        make(map[string]*FileTraceModel),
		modelsToFile: make(map[string][]string),
		opts:         opts,
	}
}

// ID returns the run's correlation id.
func (t *TraceModel) ID() string { return t.id }

// NewFileTraceModel returns the run's model for fileName, creating an empty
// one on first use.
func (t *TraceModel) NewFileTraceModel(fileName string) *FileTraceModel {
	if f, ok := t.files[fileName]; ok {
		return f
	}
	f := NewFileTraceModel(fileName, t.opts...)
	t.AddFileTraceModel(f)
	return f
}

// AddFileTraceModel takes ownership of f, replacing any model previously
// registered under the same file name. Traces already recorded in f are
// propagated to the run.
func (t *TraceModel) AddFileTraceModel(f *FileTraceModel) {
	if f == nil {
		return
	}
	if _, ok := t.files[f.fileName]; !ok {
		t.fileOrder = append(t.fileOrder, f.fileName)
	}
	t.files[f.fileName] = f
	f.owner = t
	for _, modelID := range f.modelOrder {
		t.AddTrace(modelID, f.fileName)
	}
}

// FileTraceModel looks up the model registered for fileName.
func (t *TraceModel) FileTraceModel(fileName string) (*FileTraceModel, bool) {
	f, ok := t.files[fileName]
	return f, ok
}

// FileTraceModels returns the run's file models in registration order.
func (t *TraceModel) FileTraceModels() []*FileTraceModel {
	out := make([]*FileTraceModel, 0, len(t.fileOrder))
	for _, name := range t.fileOrder {
		out = append(out, t.files[name])
	}
	return out
}

// AddTrace records that modelID contributed to fileName.
func (t *TraceModel) AddTrace(modelID, fileName string) {
	files, ok := t.modelsToFile[modelID]
	if !ok {
		t.modelOrder = append(t.modelOrder, modelID)
	}
	for _, name := range files {
		if name == fileName {
			return
		}
	}
	t.modelsToFile[modelID] = append(files, fileName)
}

// Files returns the files modelID contributed to.
func (t *TraceModel) Files(modelID string) []string {
	out := make([]string, len(t.modelsToFile[modelID]))
	copy(out, t.modelsToFile[modelID])
	return out
}

// RunTrace returns the wire form of the run.
func (t *TraceModel) RunTrace() *RunTrace {
	rt := &RunTrace{
		ID:           t.id,
		TracedFiles:  make([]string, len(t.fileOrder)),
		ModelsToFile: make(map[string]FileList, len(t.modelOrder)),
	}
	copy(rt.TracedFiles, t.fileOrder)
	for _, modelID := range t.modelOrder {
		rt.ModelsToFile[modelID] = FileList{Files: t.Files(modelID)}
	}
	return rt
}

// MarshalJSON encodes the run-level trace metadata.
func (t *TraceModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.RunTrace())
}
