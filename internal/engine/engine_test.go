package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/strategy"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
)

const classSource = "class $Name$ {\n-{ $Body$ // add code }-\n$Methods$}\n"

const methodSource = "  void $Method$() {-{ $Impl$ }-}\n"

// recordingLogger keeps warnings for assertions.
type recordingLogger struct {
	warnings *[]string
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{warnings: &[]string{}}
}

func (recordingLogger) Debug(context.Context, string, ...interface{}) {}
func (recordingLogger) Info(context.Context, string, ...interface{})  {}
func (r recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	*r.warnings = append(*r.warnings, msg)
}
func (recordingLogger) Error(context.Context, error, string, ...interface{}) {}
func (r recordingLogger) With(...interface{}) logging.Logger                 { return r }
func (r recordingLogger) WithComponent(string) logging.Logger                { return r }

// generation is one run over Main.java producing a class with methods.
type generation struct {
	content  string
	metadata []byte
	engine   *Engine
}

func generate(t *testing.T, s strategy.Strategy, methods ...string) generation {
	t.Helper()
	run := trace.NewTraceModel()
	e := New(s, run.NewFileTraceModel("Main.java"))

	class, err := e.CreateTemplate("main", classSource)
	require.NoError(t, err)
	require.NoError(t, class.SetVariable("Name", "Shop"))

	for _, m := range methods {
		method, err := e.CreateTemplate("method-"+m, methodSource)
		require.NoError(t, err)
		require.NoError(t, method.SetVariable("Method", m))
		_, err = class.AppendTemplate("Methods", method)
		require.NoError(t, err)
		e.AddTemplateTrace("op-"+m, "operation", m, method)
	}

	e.AddTemplate(class)
	e.AddTemplateTrace("ms-1", "microservice", "Shop", class)

	metadata, err := e.TraceMetadata()
	require.NoError(t, err)
	return generation{content: e.Content(), metadata: metadata, engine: e}
}

// edit loads a generation like an editor would, changes the free-edit
// region id and writes the result back.
func edit(t *testing.T, g generation, id, text string) generation {
	t.Helper()
	model, err := trace.LoadFileTraceModel("Main.java", g.metadata, g.content)
	require.NoError(t, err)
	s, ok := model.RecursiveSegment(id)
	require.True(t, ok)
	leaf := s.(*segment.ContentSegment)
	require.False(t, leaf.Protected())
	leaf.SetContent(text)

	metadata, err := model.MarshalJSON()
	require.NoError(t, err)
	return generation{content: model.Content(), metadata: metadata}
}

func previous(t *testing.T, g generation) *trace.FileTraceModel {
	t.Helper()
	model, err := trace.LoadFileTraceModel("Main.java", g.metadata, g.content)
	require.NoError(t, err)
	return model
}

func TestFirstGeneration(t *testing.T) {
	g := generate(t, nil, "a", "b")

	assert.Equal(t,
		"class Shop {\n // add code \n  void a() { }\n  void b() { }\n}\n",
		g.content)
	assert.Equal(t, StateFresh, g.engine.State("main"))
	assert.Equal(t, StateNotRequested, g.engine.State("other"))

	ft := g.engine.FileTrace()
	require.Len(t, ft.TraceSegments, 1)
	assert.Equal(t, "main", ft.TraceSegments[0].ID)
	assert.Equal(t, []string{"main"}, ft.Traces["ms-1"].Segments)
	assert.Equal(t, "operation", ft.Traces["op-a"].Type)
}

func TestRegeneration_PreservesFreeEdits(t *testing.T) {
	first := generate(t, nil, "a")
	edited := edit(t, first, "main:$Body$", " return 42; ")
	edited = edit(t, edited, "method-a:$Impl$", " log(); ")

	second := generate(t, strategy.NewOrdered(previous(t, edited)), "a", "b")

	assert.Equal(t, StateReused, second.engine.State("main"))
	assert.Equal(t, StateReused, second.engine.State("method-a"))
	assert.Equal(t, StateFresh, second.engine.State("method-b"))
	assert.Equal(t,
		"class Shop {\n return 42; \n  void a() { log(); }\n  void b() { }\n}\n",
		second.content)

	// the edited region keeps its id in the new metadata
	model := previous(t, second)
	body, ok := model.RecursiveSegment("main:$Body$")
	require.True(t, ok)
	assert.Equal(t, " return 42; ", body.Content())
	assert.True(t, body.(*segment.ContentSegment).IntegrityCheck())
}

func TestRegeneration_ReusedTemplateIgnoresNewSource(t *testing.T) {
	first := generate(t, nil)
	prev := previous(t, first)

	e := New(strategy.NewOrdered(prev), trace.NewFileTraceModel("Main.java"))
	class, err := e.CreateTemplate("main", "completely different $Name$")
	require.NoError(t, err)
	assert.True(t, class.Reused())
	require.NoError(t, class.SetVariable("$Name$", "Store"))
	e.AddTemplate(class)

	// placeholders that are not filled again keep their previous text
	assert.Equal(t, "class Store {\n // add code \n$Methods$}\n", e.Content())
}

func TestRegeneration_AppendOrder(t *testing.T) {
	first := generate(t, nil, "c1", "c2", "c3")
	prev := func() *trace.FileTraceModel { return previous(t, first) }

	methods := func(content string) []string {
		var names []string
		for _, line := range strings.Split(content, "\n") {
			if strings.HasPrefix(line, "  void ") {
				names = append(names, strings.TrimSuffix(strings.TrimPrefix(line, "  void "), "() { }"))
			}
		}
		return names
	}

	tests := []struct {
		name     string
		strategy strategy.Strategy
		appended []string
		expected []string
	}{
		{"ordered shuffled", strategy.NewOrdered(prev()), []string{"c3", "c1", "c2"}, []string{"c1", "c2", "c3"}},
		{"ordered drop and add", strategy.NewOrdered(prev()), []string{"c4", "c3", "c2"}, []string{"c2", "c3", "c4"}},
		{"unordered shuffled", strategy.NewUnordered(prev()), []string{"c3", "c1", "c2"}, []string{"c3", "c1", "c2"}},
		{"unordered drop and add", strategy.NewUnordered(prev()), []string{"c4", "c3", "c2"}, []string{"c4", "c3", "c2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := generate(t, tt.strategy, tt.appended...)
			assert.Equal(t, tt.expected, methods(g.content))
		})
	}
}

func TestCreateTemplate_SameIDReturnsSameTemplate(t *testing.T) {
	e := New(nil, nil)
	a, err := e.CreateTemplate("main", classSource)
	require.NoError(t, err)
	b, err := e.CreateTemplate("main", "ignored")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestCreateTemplate_StrategyMismatch(t *testing.T) {
	prev := trace.NewFileTraceModel("Main.java")
	prev.AddSegment(segment.NewProtected("main", "old leaf"))

	logger := newRecordingLogger()
	e := New(strategy.NewUnordered(prev), nil, WithLogger(logger))
	tpl, err := e.CreateTemplate("main", "fresh $X$")
	require.NoError(t, err)

	assert.False(t, tpl.Reused())
	assert.Equal(t, "fresh $X$", tpl.Content())
	assert.Equal(t, []string{"strategy mismatch, discarding previous segment"}, *logger.warnings)
}

func TestCreateTemplate_Malformed(t *testing.T) {
	e := New(nil, nil)
	_, err := e.CreateTemplate("main", "-{ open")
	assert.True(t, errors.Is(err, caeerrors.ErrMalformedTemplate))
	assert.Equal(t, StateNotRequested, e.State("main"))
}

func TestSetVariable(t *testing.T) {
	e := New(nil, nil)
	tpl, err := e.CreateTemplate("t", "$A$ and $A$ -{ default $A$ }- -{ $B$ b }-")
	require.NoError(t, err)

	require.NoError(t, tpl.SetVariable("A", "x"))
	assert.Equal(t, "x and x  default x   b ", tpl.Content())
	assert.True(t, tpl.IsSet("$A$"))

	require.NoError(t, tpl.SetVariableIfNotSet("A", "y"))
	assert.Equal(t, "x and x  default x   b ", tpl.Content())

	require.NoError(t, tpl.SetVariable("$B$", "explicit"))
	assert.Contains(t, tpl.Content(), "explicit")

	err = tpl.SetVariable("Missing", "z")
	assert.True(t, errors.Is(err, caeerrors.ErrPlaceholderNotFound))
	assert.True(t, errors.Is(tpl.SetVariableIfNotSet("Missing", "z"), caeerrors.ErrPlaceholderNotFound))
}

func TestSetVariable_ReusedKeepsFreeEdits(t *testing.T) {
	prevEngine := New(nil, trace.NewFileTraceModel("f"))
	old, err := prevEngine.CreateTemplate("t", "$A$ -{ $B$ hand edited }-")
	require.NoError(t, err)
	prevEngine.AddTemplate(old)

	e := New(strategy.NewOrdered(prevEngine.FileTraceModel()), nil)
	tpl, err := e.CreateTemplate("t", "ignored")
	require.NoError(t, err)
	require.True(t, tpl.Reused())

	require.NoError(t, tpl.SetVariable("A", "new"))
	require.NoError(t, tpl.SetVariable("B", "overwrite"))
	assert.Equal(t, "new  hand edited ", tpl.Content())
}

func TestSetTemplate(t *testing.T) {
	e := New(nil, nil)
	parent, err := e.CreateTemplate("parent", "<$Child$>")
	require.NoError(t, err)
	child, err := e.CreateTemplate("child", "inner -{ x }-")
	require.NoError(t, err)

	require.NoError(t, parent.SetTemplate("Child", child))
	assert.Equal(t, "<inner  x >", parent.Content())

	desc := parent.Segment().Describe()
	require.Len(t, desc.Segments, 3)
	assert.Equal(t, "child", desc.Segments[1].ID)
	assert.Equal(t, "$Child$", desc.Segments[1].Name)

	// replacing the nested template by text gives the placeholder its id back
	require.NoError(t, parent.SetVariable("Child", "text"))
	assert.Equal(t, "<text>", parent.Content())
	_, ok := parent.Segment().Find("parent:$Child$")
	assert.True(t, ok)
}

func TestSetTemplate_Errors(t *testing.T) {
	e := New(nil, nil)
	parent, err := e.CreateTemplate("parent", "$A$ $A$ $B$")
	require.NoError(t, err)
	child, err := e.CreateTemplate("child", "$C$")
	require.NoError(t, err)

	assert.True(t, errors.Is(parent.SetTemplate("A", child), caeerrors.ErrPlaceholderAmbiguous))
	assert.True(t, errors.Is(parent.SetTemplate("Z", child), caeerrors.ErrPlaceholderNotFound))
	assert.True(t, errors.Is(parent.SetTemplate("B", parent), caeerrors.ErrTemplateCycle))

	require.NoError(t, parent.SetTemplate("B", child))
	assert.True(t, errors.Is(child.SetTemplate("C", parent), caeerrors.ErrTemplateCycle))
	assert.Error(t, parent.SetTemplate("B", nil))
}

func TestAppendTemplate(t *testing.T) {
	e := New(nil, nil)
	parent, err := e.CreateTemplate("parent", "[$Items$]")
	require.NoError(t, err)

	item := func(id string) *Template {
		tpl, err := e.CreateTemplate(id, id+";")
		require.NoError(t, err)
		return tpl
	}

	a := item("a")
	got, err := parent.AppendTemplate("Items", a)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = parent.AppendTemplate("$Items$", item("b"))
	require.NoError(t, err)

	again, err := parent.AppendTemplate("Items", item("a"))
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, "[a;b;]", parent.Content())

	removed, err := parent.RemoveAppended("Items", "a")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, "[b;]", parent.Content())

	removed, err = parent.RemoveAppended("Items", "a")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = parent.RemoveAppended("Other", "a")
	assert.True(t, errors.Is(err, caeerrors.ErrPlaceholderNotFound))

	_, err = parent.AppendTemplate("Missing", item("c"))
	assert.True(t, errors.Is(err, caeerrors.ErrPlaceholderNotFound))
	_, err = parent.AppendTemplate("Items", parent)
	assert.True(t, errors.Is(err, caeerrors.ErrTemplateCycle))
}

func TestAddTemplate_OneInstancePerID(t *testing.T) {
	file := trace.NewFileTraceModel("f")
	e := New(nil, file)
	tpl, err := e.CreateTemplate("main", "x")
	require.NoError(t, err)

	e.AddTemplate(tpl)
	e.AddTemplate(tpl)
	e.AddTemplate(nil)
	assert.Len(t, file.Segments(), 1)
	assert.Equal(t, "x", e.Content())
}

func TestAddTrace_IgnoresNil(t *testing.T) {
	file := trace.NewFileTraceModel("f")
	e := New(nil, file)
	e.AddTrace("m", "t", "n", nil)
	e.AddTemplateTrace("m", "t", "n", nil)
	assert.Empty(t, file.ModelIDs())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reused", StateReused.String())
	assert.Equal(t, "fresh", StateFresh.String())
	assert.Equal(t, "not-requested", StateNotRequested.String())
}
