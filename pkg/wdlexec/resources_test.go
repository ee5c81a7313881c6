package wdlexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/syntax"
)

func parseTaskNode(t *testing.T, source string) *syntax.Node {
	t.Helper()

	tree, diags := syntax.DefaultMockParser.Parse("t.wdl", []byte(source))
	require.Empty(t, diags)

	for _, c := range tree.Children {
		if c.Kind == syntax.KindTaskDef {
			return c
		}
	}

	t.Fatal("no task found")

	return nil
}

func TestTaskResourcesParsesRuntimeSection(t *testing.T) {
	source := "version 1.0\n" +
		"task sized {\n" +
		"runtime {\n" +
		"cpu = 2\n" +
		"memory = \"4 GB\"\n" +
		"disks = \"10 GB\"\n" +
		"}\n" +
		"command {\n" +
		"echo hi\n" +
		"}\n" +
		"}\n"

	task := parseTaskNode(t, source)

	res := taskResources(task)
	assert.InDelta(t, 2.0, res.CPUCores, 0.001)
	assert.Equal(t, int64(4*1000*1000*1000), res.MemoryByte)
	assert.Equal(t, int64(10*1000*1000*1000), res.DiskByte)
}

func TestTaskResourcesDefaultsToZeroWithoutRuntime(t *testing.T) {
	source := "version 1.0\n" +
		"task bare {\n" +
		"command {\n" +
		"echo hi\n" +
		"}\n" +
		"}\n"

	task := parseTaskNode(t, source)

	res := taskResources(task)
	assert.Zero(t, res.CPUCores)
	assert.Zero(t, res.MemoryByte)
}

func TestParseSizeLiteralAcceptsBareBytesAndBinaryUnits(t *testing.T) {
	assert.Equal(t, int64(1024), parseSizeLiteral("1024"))
	assert.Equal(t, int64(2*1024*1024), parseSizeLiteral("2 MiB"))
	assert.Equal(t, int64(0), parseSizeLiteral("not-a-size"))
}
