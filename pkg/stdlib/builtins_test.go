package stdlib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/stdlib"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

func invoke(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()

	fn, ok := stdlib.Global().Lookup(name)
	require.True(t, ok, "builtin %q not registered", name)

	result, diag := fn.Invoke(stdlib.CallContext{Ctx: context.Background(), Args: args, WorkDir: t.TempDir()})
	require.Nil(t, diag, "unexpected diagnostic: %v", diag)

	return result
}

func TestSelectFirst(t *testing.T) {
	arr := value.Array(wdltype.Int().Opt(), []value.Value{value.None(), value.Int(7)})
	got := invoke(t, "select_first", arr)
	assert.Equal(t, int64(7), got.AsInt())
}

func TestSelectFirstAllNone(t *testing.T) {
	arr := value.Array(wdltype.Int().Opt(), []value.Value{value.None(), value.None()})

	fn, _ := stdlib.Global().Lookup("select_first")
	_, diag := fn.Invoke(stdlib.CallContext{Ctx: context.Background(), Args: []value.Value{arr}})
	assert.NotNil(t, diag)
}

func TestSelectAll(t *testing.T) {
	arr := value.Array(wdltype.Int().Opt(), []value.Value{value.None(), value.Int(1), value.Int(2)})
	got := invoke(t, "select_all", arr)
	assert.Len(t, got.AsArray(), 2)
}

func TestLengthArrayAndMap(t *testing.T) {
	arr := value.Array(wdltype.Int(), []value.Value{value.Int(1), value.Int(2), value.Int(3)})
	assert.Equal(t, int64(3), invoke(t, "length", arr).AsInt())

	m := value.MapVal(wdltype.String(), wdltype.Int(), []value.Value{value.Str("a")}, []value.Value{value.Int(1)})
	assert.Equal(t, int64(1), invoke(t, "length", m).AsInt())
}

func TestRange(t *testing.T) {
	got := invoke(t, "range", value.Int(3))
	require.Len(t, got.AsArray(), 3)
	assert.Equal(t, int64(0), got.AsArray()[0].AsInt())
	assert.Equal(t, int64(2), got.AsArray()[2].AsInt())
}

func TestZip(t *testing.T) {
	a := value.Array(wdltype.Int(), []value.Value{value.Int(1), value.Int(2)})
	b := value.Array(wdltype.String(), []value.Value{value.Str("x"), value.Str("y")})

	got := invoke(t, "zip", a, b)
	require.Len(t, got.AsArray(), 2)

	l, r := got.AsArray()[0].AsPair()
	assert.Equal(t, int64(1), l.AsInt())
	assert.Equal(t, "x", r.AsString())
}

func TestFlatten(t *testing.T) {
	inner1 := value.Array(wdltype.Int(), []value.Value{value.Int(1), value.Int(2)})
	inner2 := value.Array(wdltype.Int(), []value.Value{value.Int(3)})
	outer := value.Array(wdltype.Array(wdltype.Int(), false), []value.Value{inner1, inner2})

	got := invoke(t, "flatten", outer)
	assert.Len(t, got.AsArray(), 3)
}

func TestAsMapAndAsPairsRoundTrip(t *testing.T) {
	keys := []value.Value{value.Str("a"), value.Str("b")}
	vals := []value.Value{value.Int(1), value.Int(2)}
	m := value.MapVal(wdltype.String(), wdltype.Int(), keys, vals)

	pairs := invoke(t, "as_pairs", m)
	require.Len(t, pairs.AsArray(), 2)

	back := invoke(t, "as_map", pairs)
	gotKeys, gotVals := back.MapEntries()
	require.Len(t, gotKeys, 2)
	assert.Equal(t, "a", gotKeys[0].AsString())
	assert.Equal(t, int64(1), gotVals[0].AsInt())
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, int64(2), invoke(t, "min", value.Int(5), value.Int(2)).AsInt())
	assert.Equal(t, int64(5), invoke(t, "max", value.Int(5), value.Int(2)).AsInt())
}

func TestFloorCeilRound(t *testing.T) {
	assert.Equal(t, int64(2), invoke(t, "floor", value.Float(2.7)).AsInt())
	assert.Equal(t, int64(3), invoke(t, "ceil", value.Float(2.1)).AsInt())
	assert.Equal(t, int64(3), invoke(t, "round", value.Float(2.5)).AsInt())
}

func TestSubBasenameSep(t *testing.T) {
	assert.Equal(t, "hello_world", invoke(t, "sub", value.Str("hello world"), value.Str(" "), value.Str("_")).AsString())
	assert.Equal(t, "foo.txt", invoke(t, "basename", value.Str("/a/b/foo.txt")).AsString())
	assert.Equal(t, "foo", invoke(t, "basename", value.Str("/a/b/foo.txt"), value.Str(".txt")).AsString())

	arr := value.Array(wdltype.String(), []value.Value{value.Str("a"), value.Str("b")})
	assert.Equal(t, "a,b", invoke(t, "sep", value.Str(","), arr).AsString())
}

func TestPrefixSuffixQuote(t *testing.T) {
	arr := value.Array(wdltype.String(), []value.Value{value.Str("a"), value.Str("b")})

	pre := invoke(t, "prefix", value.Str("-"), arr)
	assert.Equal(t, "-a", pre.AsArray()[0].AsString())

	suf := invoke(t, "suffix", value.Str(".txt"), arr)
	assert.Equal(t, "a.txt", suf.AsArray()[0].AsString())

	q := invoke(t, "quote", arr)
	assert.Equal(t, `"a"`, q.AsArray()[0].AsString())
}

func TestReadStringTrimsExactlyOneNewline(t *testing.T) {
	fn, ok := stdlib.Global().Lookup("read_string")
	require.True(t, ok)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("hello\n\n"), 0o600))

	got, diag := fn.Invoke(stdlib.CallContext{Ctx: context.Background(), Args: []value.Value{value.FileVal("out.txt")}, WorkDir: dir})
	require.Nil(t, diag)
	assert.Equal(t, "hello\n", got.AsString())
}
