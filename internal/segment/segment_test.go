package segment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendOrder keeps the order in which ids were appended.
type appendOrder struct{}

func (appendOrder) ReconcileOrder(_, appended []string) []string {
	return append([]string(nil), appended...)
}

// previousFirst keeps previously known ids first.
type previousFirst struct{}

func (previousFirst) ReconcileOrder(previous, appended []string) []string {
	in := make(map[string]bool, len(appended))
	for _, id := range appended {
		in[id] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, id := range previous {
		if in[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range appended {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func TestContentSegment(t *testing.T) {
	protected := NewProtected("main:protected[0]", "class ")
	assert.Equal(t, KindProtected, protected.Kind())
	assert.True(t, protected.Protected())
	assert.False(t, protected.IntegrityCheck())
	assert.Equal(t, 6, protected.Len())
	assert.Nil(t, protected.Describe().IntegrityCheck)

	free := NewUnprotected("main:$Body$", "return 1;", true)
	assert.Equal(t, KindUnprotected, free.Kind())
	assert.True(t, free.IntegrityCheck())

	free.SetContent("return 42;")
	assert.Equal(t, "return 42;", free.Content())
	assert.Equal(t, 10, free.Len())

	desc := free.Describe()
	require.NotNil(t, desc.IntegrityCheck)
	assert.True(t, *desc.IntegrityCheck)
	assert.Equal(t, 10, desc.Length)
}

func TestCompositeSegment_ContentAndLength(t *testing.T) {
	c := NewComposite("main")
	name := NewProtected("main:$Name$", "$Name$")
	c.Add("protected", NewProtected("main:protected[0]", "class "))
	c.Add("$Name$", name)
	c.Add("protected", NewProtected("main:protected[1]", " {}"))

	assert.Equal(t, "class $Name$ {}", c.Content())
	assert.Equal(t, len("class $Name$ {}"), c.Len())

	name.SetContent("Customer")
	assert.Equal(t, "class Customer {}", c.Content())
	assert.Equal(t, len("class Customer {}"), c.Len(), "length must follow child mutations")
	assert.Equal(t, c.Len(), c.Describe().Length)
}

func TestCompositeSegment_LookupAndReplace(t *testing.T) {
	c := NewComposite("main")
	first := NewProtected("main:$Name$", "$Name$")
	second := NewProtected("main:$Name$[1]", "$Name$")
	c.Add("$Name$", first)
	c.Add("protected", NewProtected("main:protected[0]", "-"))
	c.Add("$Name$", second)

	assert.Equal(t, []Segment{first, second}, c.Lookup("$Name$"))
	got, ok := c.Child("$Name$")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Empty(t, c.Lookup("$Missing$"))

	nested := NewComposite("body")
	nested.Add("protected", NewProtected("body:protected[0]", "nested"))
	assert.True(t, c.ReplaceChild(second, nested))
	assert.False(t, c.ReplaceChild(second, nested), "second is no longer a child")
	assert.Equal(t, []string{"$Name$", "protected", "$Name$"}, c.Names())
	assert.Equal(t, "$Name$-nested", c.Content())

	found, ok := c.Find("body:protected[0]")
	require.True(t, ok)
	assert.Equal(t, "nested", found.Content())
}

func TestCompositeSegment_DescribeNames(t *testing.T) {
	c := NewComposite("main")
	c.Add("$Name$", NewProtected("main:$Name$[1]", "x"))
	nested := NewComposite("body")
	c.Add("$Body$", nested)

	desc := c.Describe()
	require.Len(t, desc.Segments, 2)
	assert.Empty(t, desc.Segments[0].Name, "derivable names are not serialized")
	assert.Equal(t, "$Body$", desc.Segments[1].Name)

	data, err := json.Marshal(desc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "main", "type": "composite", "length": 1,
		"traceSegments": [
			{"id": "main:$Name$[1]", "type": "protected", "length": 1},
			{"id": "body", "name": "$Body$", "type": "composite", "length": 0}
		]
	}`, string(data))
}

func TestNameFromID(t *testing.T) {
	tests := []struct {
		parent, id, expected string
	}{
		{"main", "main:$Name$", "$Name$"},
		{"main", "main:$Name$[2]", "$Name$"},
		{"main", "main:unprotected[0]", "unprotected"},
		{"main", "method-1", "method-1"},
		{"main", "mainly:$X$", "mainly:$X$"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, NameFromID(tt.parent, tt.id))
		})
	}
}

func TestAppendableSegment_AppendIsIdempotent(t *testing.T) {
	a := NewAppendable("main:$Methods$", nil, appendOrder{})
	m1 := NewComposite("m1")
	m1.Add("protected", NewProtected("m1:protected[0]", "one;"))

	assert.Same(t, m1, a.Append(m1))
	again := NewComposite("m1")
	assert.Same(t, m1, a.Append(again), "duplicate id returns the existing entry")
	assert.Len(t, a.Children(), 1)
	assert.Equal(t, "one;", a.Content())
	assert.Equal(t, KindComposite, a.Kind())
}

func TestAppendableSegment_OrderingPolicies(t *testing.T) {
	build := func(orderer Orderer, previous []string, appended ...string) []string {
		a := NewAppendable("list", previous, orderer)
		for _, id := range appended {
			a.Append(NewComposite(id))
		}
		var ids []string
		for _, s := range a.Children() {
			ids = append(ids, s.ID())
		}
		return ids
	}

	previous := []string{"c1", "c2", "c3"}
	assert.Equal(t, []string{"c3", "c1", "c2"}, build(appendOrder{}, previous, "c3", "c1", "c2"))
	assert.Equal(t, []string{"c1", "c2", "c3"}, build(previousFirst{}, previous, "c3", "c1", "c2"))
	assert.Equal(t, []string{"c2", "c3", "c4"}, build(previousFirst{}, previous, "c4", "c3", "c2"))
	assert.Equal(t, []string{"b", "a"}, build(nil, nil, "b", "a"))
}

func TestAppendableSegment_DescribeNames(t *testing.T) {
	a := NewAppendable("list", nil, nil)
	a.Append(NewComposite("list:item[1]"))
	a.Append(NewComposite("other"))

	d := a.Describe()
	require.Len(t, d.Segments, 2)
	assert.Equal(t, "list:item[1]", d.Segments[0].Name, "name not derivable from a prefixed id")
	assert.Empty(t, d.Segments[1].Name)
}

func TestAppendableSegment_RemoveAndReplace(t *testing.T) {
	a := NewAppendable("list", nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		leaf := NewComposite(id)
		leaf.Add("protected", NewProtected(id+":protected[0]", id))
		a.Append(leaf)
	}
	assert.Equal(t, "abc", a.Content())

	assert.True(t, a.Remove("b"))
	assert.False(t, a.Remove("b"))
	assert.Equal(t, "ac", a.Content())
	assert.Equal(t, []string{"a", "c"}, a.Appended())

	x := NewComposite("x")
	x.Add("protected", NewProtected("x:protected[0]", "X"))
	a.SetSegments([]Segment{x, x, nil})
	assert.Equal(t, "X", a.Content())
	assert.Equal(t, 1, a.Len())
	_, ok := a.Get("a")
	assert.False(t, ok)
}

func TestIndexAndWalk(t *testing.T) {
	root := NewComposite("main")
	list := NewAppendable("main:$Items$", nil, nil)
	item := NewComposite("item")
	item.Add("$Body$", NewUnprotected("item:$Body$", "x", true))
	list.Append(item)
	root.Add("$Items$", list)

	index := Index(root)
	assert.Len(t, index, 4)
	assert.Same(t, item, index["item"])

	var visited []string
	Walk(root, func(s Segment) bool {
		visited = append(visited, s.ID())
		return s.ID() != "item"
	})
	assert.Equal(t, []string{"main", "main:$Items$", "item"}, visited)
}
