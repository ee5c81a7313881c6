package docgraph_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

func TestAnalyzerWithRedisSourceCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	source := "version 1.0\ntask hello {\n}\n"
	fetchCount := 0
	fetcher := docgraph.FetchFunc(func(_ context.Context, uri string) ([]byte, error) {
		fetchCount++
		return []byte(source), nil
	})

	a := docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher)
	a.SetSourceCache(docgraph.NewRedisSourceCache(client))

	ctx := context.Background()
	require.NoError(t, a.AddDocument(ctx, "main.wdl"))
	assert.Equal(t, 1, fetchCount)

	// Dropping and re-adding the document should hit the Redis cache
	// instead of re-fetching, since RemoveDocument doesn't touch the
	// source cache.
	a.RemoveDocument("main.wdl")
	require.NoError(t, a.AddDocument(ctx, "main.wdl"))
	assert.Equal(t, 1, fetchCount)

	doc, ok := a.Document("main.wdl")
	require.True(t, ok)
	assert.Contains(t, doc.Tasks, "hello")
}
