package recipe

import (
	"context"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/engine"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/store"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/strategy"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
)

// Generator runs recipes against the previous generation kept in a store
// and persists the results.
type Generator struct {
	Store    *store.Store
	Strategy string
	Logger   logging.Logger
}

// Result summarizes one file of a run.
type Result struct {
	File     string `json:"file"`
	Reused   int    `json:"reused"`
	Fresh    int    `json:"fresh"`
	Previous bool   `json:"previous"`
}

// Generate runs every recipe in one generation run and saves each file and
// the run trace. It stops at the first failing recipe.
func (g *Generator) Generate(ctx context.Context, recipes ...*Recipe) (*trace.TraceModel, []Result, error) {
	logger := g.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("generator")

	run := trace.NewTraceModel(trace.WithLogger(logger))
	results := make([]Result, 0, len(recipes))
	for _, r := range recipes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		previous, found, err := g.Store.LoadModel(r.File, trace.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		s, err := strategy.New(g.Strategy, previous)
		if err != nil {
			return nil, nil, err
		}

		file := run.NewFileTraceModel(r.File)
		e := engine.New(s, file, engine.WithLogger(logger))
		if err := r.Run(e); err != nil {
			return nil, nil, err
		}
		if err := g.Store.Save(ctx, file); err != nil {
			return nil, nil, err
		}

		result := Result{File: r.File, Previous: found}
		for _, spec := range r.Templates {
			switch e.State(spec.ID) {
			case engine.StateReused:
				result.Reused++
			case engine.StateFresh:
				result.Fresh++
			}
		}
		results = append(results, result)
		logger.Info(ctx, "generated file",
			"file", r.File,
			"strategy", s.Name(),
			"reused", result.Reused,
			"fresh", result.Fresh)
	}

	if err := g.Store.SaveRun(ctx, run); err != nil {
		return nil, nil, err
	}
	return run, results, nil
}
