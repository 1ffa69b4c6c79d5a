package recipe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/engine"
	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/store"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/testutils"
)

const shopRecipe = `
file: src/Shop.java
templates:
  - id: shop
    root: true
    path: class.tpl
    variables: {Name: Shop}
    append:
      Methods: [shop-get, shop-put]
  - id: shop-get
    source: "  void get() {-{ $Impl$ }-}\n"
  - id: shop-put
    source: "  void put() {-{ $Impl$ }-}\n"
traces:
  - model: ms-1
    type: microservice
    name: Shop
    template: shop
  - model: op-get
    type: operation
    name: get
    segment: "shop-get:$Impl$"
`

const shopRecipeV2 = `
file: src/Shop.java
templates:
  - id: shop
    root: true
    path: class.tpl
    variables: {Name: Shop}
    append:
      Methods: [shop-del, shop-put, shop-get]
  - id: shop-get
    source: "  void get() {-{ $Impl$ }-}\n"
  - id: shop-put
    source: "  void put() {-{ $Impl$ }-}\n"
  - id: shop-del
    source: "  void del() {-{ $Impl$ }-}\n"
`

func writeRecipe(t *testing.T, dir, name, body string) string {
	t.Helper()
	testutils.WriteFile(t, dir, "class.tpl", "class $Name$ {\n$Methods$}\n")
	return testutils.WriteFile(t, dir, name, body)
}

func TestLoadAndRun(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(writeRecipe(t, dir, "shop.yml", shopRecipe))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shop.yml"), r.Source())
	assert.Equal(t, "class $Name$ {\n$Methods$}\n", r.Templates[0].Source)

	e := engine.New(nil, nil)
	require.NoError(t, r.Run(e))
	assert.Equal(t, "class Shop {\n  void get() { }\n  void put() { }\n}\n", e.Content())

	ft := e.FileTrace()
	assert.Equal(t, []string{"shop"}, ft.Traces["ms-1"].Segments)
	assert.Equal(t, []string{"shop-get:$Impl$"}, ft.Traces["op-get"].Segments)
}

func TestGenerator_Regeneration(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	st, err := store.New(filepath.Join(dir, "out"), ".traces")
	require.NoError(t, err)
	g := &Generator{Store: st, Strategy: "ordered"}

	first, err := Load(writeRecipe(t, dir, "v1.yml", shopRecipe))
	require.NoError(t, err)
	run, results, err := g.Generate(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []Result{{File: "src/Shop.java", Fresh: 3}}, results)
	assert.Equal(t, []string{"src/Shop.java"}, run.Files("ms-1"))

	// a developer edits the free-edit region of get
	testutils.EditFreeRegion(t, st, "src/Shop.java", "shop-get:$Impl$", " return cache; ")

	second, err := Load(writeRecipe(t, dir, "v2.yml", shopRecipeV2))
	require.NoError(t, err)
	_, results, err = g.Generate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []Result{{File: "src/Shop.java", Reused: 3, Fresh: 1, Previous: true}}, results)

	content, err := st.ReadContent("src/Shop.java")
	require.NoError(t, err)
	assert.Equal(t,
		"class Shop {\n  void get() { return cache; }\n  void put() { }\n  void del() { }\n}\n",
		content)

	rt, err := st.LoadRun()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/Shop.java"}, rt.TracedFiles)
	assert.Empty(t, rt.ModelsToFile)
}

func TestGenerator_KeepsEditsMadeInOutputFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	st, err := store.New(filepath.Join(dir, "out"), ".traces")
	require.NoError(t, err)
	g := &Generator{Store: st, Strategy: "ordered"}

	first, err := Load(writeRecipe(t, dir, "v1.yml", shopRecipe))
	require.NoError(t, err)
	_, _, err = g.Generate(ctx, first)
	require.NoError(t, err)

	path, err := st.ContentPath("src/Shop.java")
	require.NoError(t, err)
	testutils.WriteFile(t, filepath.Dir(path), filepath.Base(path),
		"class Shop {\n  void get() { int x = 42; }\n  void put() { }\n}\n")

	second, err := Load(writeRecipe(t, dir, "v2.yml", shopRecipeV2))
	require.NoError(t, err)
	_, results, err := g.Generate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []Result{{File: "src/Shop.java", Reused: 3, Fresh: 1, Previous: true}}, results)

	content, err := st.ReadContent("src/Shop.java")
	require.NoError(t, err)
	assert.Equal(t,
		"class Shop {\n  void get() { int x = 42; }\n  void put() { }\n  void del() { }\n}\n",
		content)
}

func TestGenerator_EditedProtectedTextFails(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	st, err := store.New(filepath.Join(dir, "out"), ".traces")
	require.NoError(t, err)
	g := &Generator{Store: st}

	r, err := Load(writeRecipe(t, dir, "v1.yml", shopRecipe))
	require.NoError(t, err)
	_, _, err = g.Generate(ctx, r)
	require.NoError(t, err)

	path, err := st.ContentPath("src/Shop.java")
	require.NoError(t, err)
	testutils.WriteFile(t, filepath.Dir(path), filepath.Base(path), "class Store {}\n")

	_, _, err = g.Generate(ctx, r)
	assert.True(t, errors.Is(err, caeerrors.ErrTraceMismatch))
}

func TestGenerator_UnknownStrategy(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir, ".traces")
	require.NoError(t, err)
	r, err := Load(writeRecipe(t, dir, "shop.yml", shopRecipe))
	require.NoError(t, err)

	_, _, err = (&Generator{Store: st, Strategy: "sideways"}).Generate(context.Background(), r)
	assert.Equal(t, caeerrors.ErrorTypeConfig, caeerrors.TypeOf(err))
}

func TestGenerator_Cancelled(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir, ".traces")
	require.NoError(t, err)
	r, err := Load(writeRecipe(t, dir, "shop.yml", shopRecipe))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = (&Generator{Store: st}).Generate(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "file: [unclosed"},
		{"no file", "templates: [{id: a, root: true, source: x}]"},
		{"file outside output", "file: ../f\ntemplates: [{id: a, root: true, source: x}]"},
		{"absolute file", "file: /tmp/f\ntemplates: [{id: a, root: true, source: x}]"},
		{"no root", "file: f\ntemplates: [{id: a, source: x}]"},
		{"duplicate id", "file: f\ntemplates: [{id: a, root: true}, {id: a}]"},
		{"missing id", "file: f\ntemplates: [{root: true}]"},
		{"unknown nest", "file: f\ntemplates: [{id: a, root: true, nest: {B: b}}]"},
		{"unknown append", "file: f\ntemplates: [{id: a, root: true, append: {B: [b]}}]"},
		{"trace without model", "file: f\ntemplates: [{id: a, root: true}]\ntraces: [{template: a}]"},
		{"trace with both targets", "file: f\ntemplates: [{id: a, root: true}]\ntraces: [{model: m, template: a, segment: s}]"},
		{"trace to unknown template", "file: f\ntemplates: [{id: a, root: true}]\ntraces: [{model: m, template: b}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body), t.TempDir())
			require.Error(t, err)
			assert.Equal(t, caeerrors.ErrorTypeValidation, caeerrors.TypeOf(err))
		})
	}
}

func TestParse_SourceAndPath(t *testing.T) {
	_, err := Parse([]byte("file: f\ntemplates: [{id: a, root: true, source: x, path: y}]"), t.TempDir())
	assert.Equal(t, caeerrors.ErrorTypeValidation, caeerrors.TypeOf(err))

	_, err = Parse([]byte("file: f\ntemplates: [{id: a, root: true, path: missing.tpl}]"), t.TempDir())
	assert.Equal(t, caeerrors.ErrorTypeIO, caeerrors.TypeOf(err))
}

func TestRun_Errors(t *testing.T) {
	t.Run("malformed template", func(t *testing.T) {
		r, err := Parse([]byte("file: f\ntemplates: [{id: a, root: true, source: '-{ open'}]"), "")
		require.NoError(t, err)
		err = r.Run(engine.New(nil, nil))
		assert.True(t, errors.Is(err, caeerrors.ErrMalformedTemplate))
	})

	t.Run("missing placeholder", func(t *testing.T) {
		r, err := Parse([]byte("file: f\ntemplates: [{id: a, root: true, source: x, variables: {Y: z}}]"), "")
		require.NoError(t, err)
		err = r.Run(engine.New(nil, nil))
		assert.True(t, errors.Is(err, caeerrors.ErrPlaceholderNotFound))
	})

	t.Run("traced segment missing", func(t *testing.T) {
		r, err := Parse([]byte("file: f\ntemplates: [{id: a, root: true, source: x}]\ntraces: [{model: m, segment: ghost}]"), "")
		require.NoError(t, err)
		err = r.Run(engine.New(nil, nil))
		assert.True(t, errors.Is(err, caeerrors.ErrSegmentNotFound))
	})
}
