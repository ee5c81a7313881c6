package inputs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/inputs"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

func TestParseJSONStrict(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"name": "alice", "count": 3}`), inputs.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "alice", raw["name"])
}

func TestParseJSONRepairsTrailingComma(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"name": "alice", "count": 3,}`), inputs.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "alice", raw["name"])
}

func TestParseYAML(t *testing.T) {
	raw, err := inputs.Parse([]byte("name: alice\ncount: 3\n"), inputs.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "alice", raw["name"])
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, inputs.FormatYAML, inputs.DetectFormat("run.yaml"))
	assert.Equal(t, inputs.FormatYAML, inputs.DetectFormat("run.yml"))
	assert.Equal(t, inputs.FormatJSON, inputs.DetectFormat("run.json"))
}

func fields() []wdltype.StructField {
	return []wdltype.StructField{
		{Name: "name", Type: wdltype.String()},
		{Name: "count", Type: wdltype.Int()},
		{Name: "tags", Type: wdltype.Array(wdltype.String(), false).Opt()},
	}
}

func TestValidateAcceptsWellFormedInputs(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"name": "alice", "count": 3}`), inputs.FormatJSON)
	require.NoError(t, err)

	assert.NoError(t, inputs.Validate(raw, fields()))
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"count": 3}`), inputs.FormatJSON)
	require.NoError(t, err)

	assert.Error(t, inputs.Validate(raw, fields()))
}

func TestValidateRejectsWrongType(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"name": "alice", "count": "three"}`), inputs.FormatJSON)
	require.NoError(t, err)

	assert.Error(t, inputs.Validate(raw, fields()))
}

func TestToValuesConvertsDeclaredFields(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"name": "alice", "count": 3, "tags": ["a", "b"]}`), inputs.FormatJSON)
	require.NoError(t, err)

	vals, err := inputs.ToValues(raw, fields())
	require.NoError(t, err)

	assert.Equal(t, "alice", vals["name"].AsString())
	assert.Equal(t, int64(3), vals["count"].AsInt())
	require.Len(t, vals["tags"].AsArray(), 2)
	assert.Equal(t, "a", vals["tags"].AsArray()[0].AsString())
}

func TestToValuesIgnoresUndeclaredFields(t *testing.T) {
	raw, err := inputs.Parse([]byte(`{"name": "alice", "count": 3, "extra": "ignored"}`), inputs.FormatJSON)
	require.NoError(t, err)

	vals, err := inputs.ToValues(raw, fields())
	require.NoError(t, err)
	_, ok := vals["extra"]
	assert.False(t, ok)
}
