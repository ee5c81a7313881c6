package wdltype_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

func TestCoercesPrimitives(t *testing.T) {
	assert.True(t, wdltype.Coerces(wdltype.Int(), wdltype.Float()))
	assert.False(t, wdltype.Coerces(wdltype.Float(), wdltype.Int()))
	assert.True(t, wdltype.Coerces(wdltype.String(), wdltype.File()))
	assert.True(t, wdltype.Coerces(wdltype.File(), wdltype.String()))
	assert.True(t, wdltype.Coerces(wdltype.String(), wdltype.Directory()))
	assert.False(t, wdltype.Coerces(wdltype.Directory(), wdltype.File()))
}

func TestCoercesOptional(t *testing.T) {
	assert.True(t, wdltype.Coerces(wdltype.Int(), wdltype.Int().Opt()))
	assert.False(t, wdltype.Coerces(wdltype.Int().Opt(), wdltype.Int()))
	assert.True(t, wdltype.Coerces(wdltype.None(), wdltype.Int().Opt()))
	assert.False(t, wdltype.Coerces(wdltype.None(), wdltype.Int()))
}

func TestCoercesArrayNonEmpty(t *testing.T) {
	nonEmpty := wdltype.Array(wdltype.Int(), true)
	empty := wdltype.Array(wdltype.Int(), false)

	assert.True(t, wdltype.Coerces(nonEmpty, empty))
	assert.False(t, wdltype.Coerces(empty, nonEmpty))
}

func TestCoercesArrayOfNone(t *testing.T) {
	arrayOfNone := wdltype.Array(wdltype.None(), false)
	targetAnyOptional := wdltype.Array(wdltype.String().Opt(), false)

	assert.True(t, wdltype.Coerces(arrayOfNone, targetAnyOptional))
}

func TestCoercesStructToObject(t *testing.T) {
	s := wdltype.StructRef("Sample")
	assert.True(t, wdltype.Coerces(s, wdltype.Object()))
	assert.False(t, wdltype.Coerces(wdltype.Object(), s))
}

func TestUnifyIntFloat(t *testing.T) {
	u, ok := wdltype.Unify(wdltype.Int(), wdltype.Float())
	require.True(t, ok)
	assert.Equal(t, wdltype.Float(), u)
}

func TestUnifyArrayIntFloat(t *testing.T) {
	a := wdltype.Array(wdltype.Int(), false)
	b := wdltype.Array(wdltype.Float(), false)

	u, ok := wdltype.Unify(a, b)
	require.True(t, ok)
	assert.True(t, u.Elem.Equal(wdltype.Float()))
}

func TestUnifyIncompatible(t *testing.T) {
	_, ok := wdltype.Unify(wdltype.String(), wdltype.Boolean())
	assert.False(t, ok)
}

func TestUnifyWithNone(t *testing.T) {
	u, ok := wdltype.Unify(wdltype.None(), wdltype.Int())
	require.True(t, ok)
	assert.Equal(t, wdltype.Int().Opt(), u)
}

func TestUnifyTable(t *testing.T) {
	tests := []struct {
		name string
		a, b wdltype.Type
		want wdltype.Type
	}{
		{"int+float", wdltype.Int(), wdltype.Float(), wdltype.Float()},
		{"none+int", wdltype.None(), wdltype.Int(), wdltype.Int().Opt()},
		{"array[int]+array[float]", wdltype.Array(wdltype.Int(), false), wdltype.Array(wdltype.Float(), false), wdltype.Array(wdltype.Float(), false)},
		{"array[int]+none", wdltype.Array(wdltype.Int(), false), wdltype.None(), wdltype.Array(wdltype.Int(), false).Opt()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := wdltype.Unify(tt.a, tt.b)
			require.True(t, ok)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Unify(%s, %s) mismatch (-want +got):\n%s", tt.a, tt.b, diff)
			}
		})
	}
}
