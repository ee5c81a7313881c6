package docgraph_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

func TestWatcherNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.wdl")

	initial := "version 1.0\ntask hello {\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))

	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, docgraph.DefaultFetcher)
	uri := "file://" + path
	require.NoError(t, a.AddDocument(context.Background(), uri))

	doc, ok := a.Document(uri)
	require.True(t, ok)
	assert.Contains(t, doc.Tasks, "hello")
	assert.NotContains(t, doc.Tasks, "renamed")

	w, err := docgraph.NewWatcher(a, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch(uri))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	updated := "version 1.0\ntask renamed {\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		doc, ok := a.Document(uri)
		return ok && doc.Tasks != nil && doc.Tasks["renamed"] != nil
	}, 2*time.Second, 10*time.Millisecond)

	doc, ok = a.Document(uri)
	require.True(t, ok)
	assert.Contains(t, doc.Tasks, "renamed")
}

func TestWatcherIgnoresHTTPURIs(t *testing.T) {
	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, docgraph.DefaultFetcher)

	w, err := docgraph.NewWatcher(a, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.NoError(t, w.Watch("https://example.com/main.wdl"))
}
