package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

func TestEqualArraysElementwise(t *testing.T) {
	a := value.Array(wdltype.Int(), []value.Value{value.Int(1), value.Int(2)})
	b := value.Array(wdltype.Int(), []value.Value{value.Int(1), value.Int(2)})
	c := value.Array(wdltype.Int(), []value.Value{value.Int(1), value.Int(3)})

	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
}

func TestEqualIntFloatCrossKind(t *testing.T) {
	assert.True(t, value.Equal(value.Int(2), value.Float(2.0)))
}

func TestCoerceIntToFloat(t *testing.T) {
	v, err := value.Coerce(value.Int(3), wdltype.Float())
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v.AsFloat(), 0)
}

func TestCoerceNoneRequiresOptional(t *testing.T) {
	_, err := value.Coerce(value.None(), wdltype.Int())
	assert.Error(t, err)

	v, err := value.Coerce(value.None(), wdltype.Int().Opt())
	require.NoError(t, err)
	assert.Equal(t, wdltype.KindNone, v.Type.Kind)
}

func TestCoerceFileStringRoundTrip(t *testing.T) {
	f := value.FileVal("/tmp/x.txt")

	s, err := value.Coerce(f, wdltype.String())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.txt", s.AsString())

	back, err := value.Coerce(s, wdltype.File())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.txt", back.AsString())
}

func TestMapGetOrderPreserved(t *testing.T) {
	keys := []value.Value{value.Str("b"), value.Str("a")}
	vals := []value.Value{value.Int(2), value.Int(1)}
	m := value.MapVal(wdltype.String(), wdltype.Int(), keys, vals)

	gotKeys, gotVals := m.MapEntries()
	require.Len(t, gotKeys, 2)
	assert.Equal(t, "b", gotKeys[0].AsString())
	assert.Equal(t, int64(2), gotVals[0].AsInt())

	v, ok := m.MapGet(value.Str("a"))
	require.True(t, ok)
	assert.Equal(t, int64(1), v.AsInt())
}

func TestStructStringRendersSortedFields(t *testing.T) {
	s := value.Struct("Sample", []string{"depth", "name"}, []value.Value{value.Int(5), value.Str("x")})
	assert.Equal(t, "{depth: 5, name: x}", s.String())
}
