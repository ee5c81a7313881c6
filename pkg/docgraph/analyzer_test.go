package docgraph_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

// memFetcher serves fixed in-memory sources, letting tests build import
// graphs without touching the filesystem.
type memFetcher struct {
	mu      sync.Mutex
	sources map[string][]byte
}

func newMemFetcher(sources map[string]string) *memFetcher {
	m := &memFetcher{sources: make(map[string][]byte, len(sources))}
	for k, v := range sources {
		m.sources[k] = []byte(v)
	}

	return m
}

func (m *memFetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sources[uri], nil
}

func TestAddDocumentParsesAndAnalyzes(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"main.wdl": "version 1.0\ntask hello {\ninput {\nname = \"world\"\n}\n}\n",
	})

	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher)

	require.NoError(t, a.AddDocument(context.Background(), "main.wdl"))

	doc, ok := a.Document("main.wdl")
	require.True(t, ok)
	assert.Equal(t, "1.0", doc.Version)
	assert.Contains(t, doc.Tasks, "hello")
}

func TestAddDocumentFollowsImports(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"main.wdl": "version 1.0\nimport \"lib.wdl\"\n",
		"lib.wdl":  "version 1.0\ntask helper {\n}\n",
	})

	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher)
	require.NoError(t, a.AddDocument(context.Background(), "main.wdl"))

	lib, ok := a.Document("lib.wdl")
	require.True(t, ok)
	assert.Contains(t, lib.Tasks, "helper")
}

func TestAddDocumentDetectsImportCycle(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"a.wdl": "version 1.0\nimport \"b.wdl\"\n",
		"b.wdl": "version 1.0\nimport \"a.wdl\"\n",
	})

	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher)
	require.NoError(t, a.AddDocument(context.Background(), "a.wdl"))

	results := a.Analyze("")
	require.Len(t, results, 2)

	foundCycleDiag := false

	for _, r := range results {
		for _, d := range r.Diagnostics {
			if d.Message != "" {
				foundCycleDiag = foundCycleDiag || containsCycleWord(d.Message)
			}
		}
	}

	assert.True(t, foundCycleDiag)
}

func containsCycleWord(msg string) bool {
	for i := 0; i+5 <= len(msg); i++ {
		if msg[i:i+5] == "cycle" {
			return true
		}
	}

	return false
}

func TestNotifyChangeInvalidatesImporters(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"main.wdl": "version 1.0\nimport \"lib.wdl\"\n",
		"lib.wdl":  "version 1.0\ntask helper {\n}\n",
	})

	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher)
	require.NoError(t, a.AddDocument(context.Background(), "main.wdl"))

	newLib := []byte("version 1.0\ntask renamed {\n}\n")
	require.NoError(t, a.NotifyChange(context.Background(), "lib.wdl", newLib))

	lib, ok := a.Document("lib.wdl")
	require.True(t, ok)
	assert.Contains(t, lib.Tasks, "renamed")

	importer, ok := a.Document("main.wdl")
	require.True(t, ok)
	assert.Equal(t, docgraph.StateStale, importer.State)
}
