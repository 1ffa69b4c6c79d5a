package guidance

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
)

// FileInput is one generated file and its trace metadata.
type FileInput struct {
	Name    string
	Content string
	Trace   []byte
}

// FileResult is the outcome of checking one file. Err is set when the file
// could not be checked.
type FileResult struct {
	File     string     `json:"file"`
	Feedback []Feedback `json:"feedback"`
	Err      error      `json:"-"`
}

// CheckModel checks every traced segment of f. Composites are visited
// bottom-up. A traced composite is checked against the free-edit leaves
// below it, excluding those of nested composites traced only by other
// elements. A segment whose element already traces an enclosing segment is
// covered by that enclosing check.
func CheckModel(rs *RuleSet, f *trace.FileTraceModel) []Feedback {
	owners := make(map[string][]string)
	for _, modelID := range f.ModelIDs() {
		for _, s := range f.Traces(modelID) {
			owners[s.ID()] = append(owners[s.ID()], modelID)
		}
	}

	var feedback []Feedback
	enclosing := make(map[string]int)
	var visit func(s segment.Segment)
	visit = func(s segment.Segment) {
		own := owners[s.ID()]
		if c, ok := s.(segment.Container); ok {
			for _, modelID := range own {
				enclosing[modelID]++
			}
			for _, child := range c.Children() {
				visit(child)
			}
			for _, modelID := range own {
				enclosing[modelID]--
			}
		}
		for _, modelID := range own {
			if enclosing[modelID] > 0 {
				continue
			}
			info, _ := f.Element(modelID)
			leaves := freeEditLeaves(s, modelID, owners)
			feedback = append(feedback, rs.CreateFeedback(info.Type, leaves)...)
		}
	}
	for _, root := range f.Segments() {
		visit(root)
	}
	return feedback
}

// freeEditLeaves collects the unprotected leaves below s in order. Nested
// composites traced by other elements but not by modelID are skipped.
func freeEditLeaves(s segment.Segment, modelID string, owners map[string][]string) []*segment.ContentSegment {
	var leaves []*segment.ContentSegment
	var collect func(s segment.Segment, top bool)
	collect = func(s segment.Segment, top bool) {
		switch v := s.(type) {
		case *segment.ContentSegment:
			if !v.Protected() {
				leaves = append(leaves, v)
			}
		case segment.Container:
			if !top && len(owners[v.ID()]) > 0 && !slices.Contains(owners[v.ID()], modelID) {
				return
			}
			for _, child := range v.Children() {
				collect(child, false)
			}
		}
	}
	collect(s, true)
	return leaves
}

// CheckFile rebuilds a file's segment tree from its trace metadata and
// checks it.
func CheckFile(rs *RuleSet, fileName, content string, traceData []byte) ([]Feedback, error) {
	f, err := trace.LoadFileTraceModel(fileName, traceData, content)
	if err != nil {
		return nil, err
	}
	return CheckModel(rs, f), nil
}

// CheckFiles checks files with at most workers in parallel. A file that
// fails to load gets its error in its result; the others are still
// checked. The returned error is only set when ctx is done.
func CheckFiles(ctx context.Context, rs *RuleSet, files []FileInput, workers int) ([]FileResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// each goroutine writes only its own index
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(files)))
	for i, file := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			feedback, err := CheckFile(rs, file.Name, file.Content, file.Trace)
			results[i] = FileResult{File: file.Name, Feedback: feedback, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
