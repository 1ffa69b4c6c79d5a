// Package recipe reads declarative generation recipes and drives the
// template engine with them. A recipe describes one generated file:
//
//	file: src/main/java/Shop.java
//	templates:
//	  - id: shop
//	    root: true
//	    path: templates/class.tpl
//	    variables: {Name: Shop}
//	    append:
//	      Methods: [shop-get]
//	  - id: shop-get
//	    source: "  public void get() {-{ $Impl$ }-}\n"
//	traces:
//	  - model: ms-1
//	    type: microservice
//	    name: Shop
//	    template: shop
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/engine"
	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/validation"
)

// Recipe describes one generated file.
type Recipe struct {
	File      string         `yaml:"file"`
	Templates []TemplateSpec `yaml:"templates"`
	Traces    []TraceSpec    `yaml:"traces"`

	// source is the recipe file, empty for in-memory recipes.
	source string
}

// TemplateSpec declares one template and how it is filled.
type TemplateSpec struct {
	ID string `yaml:"id"`
	// Source is inline template text; Path names a template file relative
	// to the recipe file. Exactly one of them is set.
	Source    string              `yaml:"source"`
	Path      string              `yaml:"path"`
	Root      bool                `yaml:"root"`
	Variables map[string]string   `yaml:"variables"`
	Nest      map[string]string   `yaml:"nest"`
	Append    map[string][]string `yaml:"append"`
}

// TraceSpec associates a model element with a template root or, when
// Segment is set, with any segment of the file.
type TraceSpec struct {
	Model    string `yaml:"model"`
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	Segment  string `yaml:"segment"`
}

// Source returns the path the recipe was loaded from.
func (r *Recipe) Source() string { return r.source }

// Load reads a recipe file and the template files it references.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, caeerrors.FileOperationError("READ", path, "cannot read recipe", err)
	}
	r, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	r.source = path
	return r, nil
}

// Parse decodes a recipe. Template paths are resolved against baseDir.
func Parse(data []byte, baseDir string) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, caeerrors.NewValidationError(caeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot decode recipe: %v", err))
	}

	for i := range r.Templates {
		spec := &r.Templates[i]
		if spec.Path == "" {
			continue
		}
		if spec.Source != "" {
			return nil, invalid("template %s sets both source and path", spec.ID)
		}
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, caeerrors.FileOperationError("READ", path, "cannot read template", err)
		}
		spec.Source = string(source)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks that ids are unique and every reference resolves.
func (r *Recipe) Validate() error {
	if r.File == "" {
		return invalid("recipe has no file")
	}
	if _, err := validation.RelativePath(r.File); err != nil {
		return invalid("recipe file %s: %v", r.File, err)
	}
	ids := make(map[string]bool, len(r.Templates))
	roots := 0
	for _, spec := range r.Templates {
		if spec.ID == "" {
			return invalid("template without id")
		}
		if ids[spec.ID] {
			return invalid("template id %s declared twice", spec.ID)
		}
		ids[spec.ID] = true
		if spec.Root {
			roots++
		}
	}
	if roots == 0 {
		return invalid("recipe for %s has no root template", r.File)
	}

	for _, spec := range r.Templates {
		for name, id := range spec.Nest {
			if !ids[id] {
				return invalid("template %s nests unknown template %s at %s", spec.ID, id, name)
			}
		}
		for name, list := range spec.Append {
			for _, id := range list {
				if !ids[id] {
					return invalid("template %s appends unknown template %s at %s", spec.ID, id, name)
				}
			}
		}
	}
	for _, tr := range r.Traces {
		if tr.Model == "" {
			return invalid("trace without model id")
		}
		if (tr.Template == "") == (tr.Segment == "") {
			return invalid("trace of %s must name exactly one of template or segment", tr.Model)
		}
		if tr.Template != "" && !ids[tr.Template] {
			return invalid("trace of %s references unknown template %s", tr.Model, tr.Template)
		}
	}
	return nil
}

// Run creates every template, fills and nests them, registers the roots in
// declaration order and records the traces.
func (r *Recipe) Run(e *engine.Engine) error {
	templates := make(map[string]*engine.Template, len(r.Templates))
	for _, spec := range r.Templates {
		t, err := e.CreateTemplate(spec.ID, spec.Source)
		if err != nil {
			return err
		}
		templates[spec.ID] = t
	}

	for _, spec := range r.Templates {
		t := templates[spec.ID]
		for _, name := range sortedKeys(spec.Variables) {
			if err := t.SetVariable(name, spec.Variables[name]); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(spec.Nest) {
			if err := t.SetTemplate(name, templates[spec.Nest[name]]); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(spec.Append) {
			for _, id := range spec.Append[name] {
				if _, err := t.AppendTemplate(name, templates[id]); err != nil {
					return err
				}
			}
		}
	}

	for _, spec := range r.Templates {
		if spec.Root {
			e.AddTemplate(templates[spec.ID])
		}
	}

	for _, tr := range r.Traces {
		if tr.Template != "" {
			e.AddTemplateTrace(tr.Model, tr.Type, tr.Name, templates[tr.Template])
			continue
		}
		s, ok := e.FileTraceModel().RecursiveSegment(tr.Segment)
		if !ok {
			return caeerrors.SegmentNotFound(r.File, tr.Segment).WithContext("model_id", tr.Model)
		}
		e.AddTrace(tr.Model, tr.Type, tr.Name, s)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return caeerrors.NewValidationError(caeerrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
