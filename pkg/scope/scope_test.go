package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/scope"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

func TestLookupClimbsParentChain(t *testing.T) {
	root := scope.Root()
	root.Declare("x", wdltype.Int())
	require.NoError(t, root.Bind("x", value.Int(1)))

	child := root.Child()
	child.Declare("y", wdltype.String())
	require.NoError(t, child.Bind("y", value.Str("hi")))

	b, ok := child.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, int64(1), b.Value.AsInt())

	_, ok = root.Lookup("y")
	assert.False(t, ok)
}

func TestLookupShadowsAncestor(t *testing.T) {
	root := scope.Root()
	root.Declare("x", wdltype.Int())
	require.NoError(t, root.Bind("x", value.Int(1)))

	child := root.Child()
	child.Declare("x", wdltype.String())
	require.NoError(t, child.Bind("x", value.Str("shadowed")))

	b, ok := child.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "shadowed", b.Value.AsString())
}

func TestArrayViewAggregatesIterations(t *testing.T) {
	outer := scope.Root()

	var iterScopes []*scope.Scope

	for i := int64(0); i < 3; i++ {
		iter := outer.Child()
		iter.Declare("doubled", wdltype.Int())
		require.NoError(t, iter.Bind("doubled", value.Int(i*2)))
		iterScopes = append(iterScopes, iter)
	}

	view := scope.NewArrayView(iterScopes)

	b, ok := view.Lookup("doubled")
	require.True(t, ok)
	assert.Equal(t, wdltype.KindArray, b.Type.Kind)
	require.Len(t, b.Value.AsArray(), 3)
	assert.Equal(t, int64(4), b.Value.AsArray()[2].AsInt())
}

func TestOptionalViewFalseConditionYieldsNone(t *testing.T) {
	body := scope.Root().Child()
	body.Declare("out", wdltype.String())
	require.NoError(t, body.Bind("out", value.Str("x")))

	view := scope.NewOptionalView(body, false)

	b, ok := view.Lookup("out")
	require.True(t, ok)
	assert.True(t, b.Type.Optional)
	assert.Equal(t, wdltype.KindNone, b.Value.Type.Kind)
}

func TestOptionalViewTrueConditionPassesThrough(t *testing.T) {
	body := scope.Root().Child()
	body.Declare("out", wdltype.String())
	require.NoError(t, body.Bind("out", value.Str("x")))

	view := scope.NewOptionalView(body, true)

	b, ok := view.Lookup("out")
	require.True(t, ok)
	assert.Equal(t, "x", b.Value.AsString())
}

func TestQualifiedLookupAlias(t *testing.T) {
	imported := scope.Root()
	imported.Declare("Sample", wdltype.StructRef("Sample"))

	s := scope.Root()

	b, ok := scope.QualifiedLookup(s, map[string]*scope.Scope{"lib": imported}, "lib.Sample")
	require.True(t, ok)
	assert.Equal(t, "Sample", b.Name)
}
