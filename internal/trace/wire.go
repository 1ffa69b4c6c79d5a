package trace

import (
	"encoding/json"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// FileTrace is the persisted trace metadata of one generated file.
type FileTrace struct {
	TraceSegments []segment.Description   `json:"traceSegments" msgpack:"traceSegments"`
	Traces        map[string]ElementTrace `json:"traces" msgpack:"traces"`
}

// ElementTrace lists the segments one model element contributed.
type ElementTrace struct {
	Name     string   `json:"name" msgpack:"name"`
	Type     string   `json:"type,omitempty" msgpack:"type,omitempty"`
	Segments []string `json:"segments" msgpack:"segments"`
}

// RunTrace is the run-level trace metadata of one generation run.
type RunTrace struct {
	ID           string              `json:"id" msgpack:"id"`
	TracedFiles  []string            `json:"tracedFiles" msgpack:"tracedFiles"`
	ModelsToFile map[string]FileList `json:"modelsToFile" msgpack:"modelsToFile"`
}

// FileList is the set of files an element contributed to.
type FileList struct {
	Files []string `json:"files" msgpack:"files"`
}

// ParseFileTrace decodes JSON trace metadata.
func ParseFileTrace(data []byte) (*FileTrace, error) {
	var ft FileTrace
	if err := json.Unmarshal(data, &ft); err != nil {
		return nil, caeerrors.TraceDecode("", err)
	}
	return &ft, nil
}

// ParseRunTrace decodes JSON run-level trace metadata.
func ParseRunTrace(data []byte) (*RunTrace, error) {
	var rt RunTrace
	if err := json.Unmarshal(data, &rt); err != nil {
		return nil, caeerrors.TraceDecode("", err)
	}
	return &rt, nil
}
