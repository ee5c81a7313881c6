package docgraph

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/toposort"
)

// Result is the analysis result for one document, spec.md §4.7: "{ uri,
// diagnostics, typed document snapshot }".
type Result struct {
	URI         string
	Diagnostics []diag.Diagnostic
	Document    *Document
}

// parseFanout caps the number of documents fetched/parsed concurrently
// during a single AddDocument's transitive-import walk.
const parseFanout = 8

// sourceCacheSize bounds the LRU cache of raw fetched source bytes, keyed
// by URI (spec.md §4.7 step 2: "Fetch source ...; cache").
const sourceCacheSize = 256

// inflight tracks a single coalesced AddDocument computation for one URI:
// every concurrent caller for the same URI waits on done and then reads
// err, giving "at-most-one-concurrent-parse-per-URI" (spec.md §4.7).
type inflight struct {
	done chan struct{}
	err  error
}

// Analyzer owns the process-global document table and import graph
// described in spec.md §4.7. It is grounded on the teacher's
// coordinator/runner actor: one logical owner of mutable state, with
// bounded worker fan-out for the I/O-bound fetch/parse steps.
type Analyzer struct {
	parser  syntax.Parser
	fetcher Fetcher

	mu    sync.RWMutex
	docs  map[string]*Document
	graph *toposort.Graph

	inflightMu sync.Mutex
	inflightOf map[string]*inflight

	sourceCache SourceCache
}

// NewAnalyzer builds an Analyzer over parser and fetcher. A nil fetcher
// uses DefaultFetcher. The source cache defaults to an in-process LRU;
// call SetSourceCache to switch to cache.backend: redis.
func NewAnalyzer(parser syntax.Parser, fetcher Fetcher) *Analyzer {
	if fetcher == nil {
		fetcher = DefaultFetcher
	}

	return &Analyzer{
		parser:      parser,
		fetcher:     fetcher,
		docs:        make(map[string]*Document),
		graph:       toposort.NewGraph(),
		inflightOf:  make(map[string]*inflight),
		sourceCache: newLocalSourceCache(sourceCacheSize),
	}
}

// SetSourceCache replaces the Analyzer's source cache, e.g. with a
// RedisSourceCache when cache.backend: redis is configured.
func (a *Analyzer) SetSourceCache(cache SourceCache) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sourceCache = cache
}

// AddDocument implements spec.md §4.7's AddDocument mutation: fetch,
// parse, analyze, then transitively add every import.
func (a *Analyzer) AddDocument(ctx context.Context, uri string) error {
	return a.addDocument(ctx, uri, nil)
}

// addDocument is AddDocument's implementation, optionally seeded with
// already-known source bytes (used by NotifyChange to avoid re-fetching).
func (a *Analyzer) addDocument(ctx context.Context, uri string, overrideSource []byte) error {
	if overrideSource == nil {
		a.mu.RLock()
		existing, ok := a.docs[uri]
		a.mu.RUnlock()

		if ok && existing.State != StateStale {
			return nil
		}
	}

	work, isLeader := a.claim(uri)
	if !isLeader {
		<-work.done

		return work.err
	}

	err := a.doAdd(ctx, uri, overrideSource)
	work.err = err
	close(work.done)

	a.inflightMu.Lock()
	delete(a.inflightOf, uri)
	a.inflightMu.Unlock()

	return err
}

func (a *Analyzer) claim(uri string) (*inflight, bool) {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()

	if existing, ok := a.inflightOf[uri]; ok {
		return existing, false
	}

	work := &inflight{done: make(chan struct{})}
	a.inflightOf[uri] = work

	return work, true
}

func (a *Analyzer) doAdd(ctx context.Context, uri string, overrideSource []byte) error {
	source := overrideSource

	if source == nil {
		if cached, ok := a.sourceCache.Get(ctx, uri); ok {
			source = cached
		} else {
			fetched, err := a.fetcher.Fetch(ctx, uri)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", uri, err)
			}

			source = fetched
			a.sourceCache.Add(ctx, uri, source)
		}
	} else {
		a.sourceCache.Add(ctx, uri, source)
	}

	tree, lexDiags := a.parser.Parse(uri, source)

	doc, typeDiags := analyzeTree(uri, tree)
	doc.Source = source

	allDiags := make([]diag.Diagnostic, 0, len(lexDiags)+len(typeDiags))
	allDiags = append(allDiags, lexDiags...)
	allDiags = append(allDiags, typeDiags...)
	doc.Diagnostics = allDiags

	a.mu.Lock()
	a.graph.AddNode(uri)
	a.docs[uri] = doc
	a.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parseFanout)

	for _, imp := range doc.Imports {
		resolved := ResolveRelative(uri, imp.URI)

		a.mu.Lock()
		a.graph.AddEdge(uri, resolved)
		cyclePath := a.graph.FindCycle(uri)
		a.mu.Unlock()

		if len(cyclePath) > 0 {
			a.mu.Lock()
			doc.Diagnostics = append(doc.Diagnostics,
				diag.Errorf("import cycle detected: %v", cyclePath).At(uri, imp.Span))
			a.mu.Unlock()

			continue
		}

		resolvedURI := resolved

		group.Go(func() error {
			return a.addDocument(groupCtx, resolvedURI, nil)
		})
	}

	return group.Wait()
}

// AddDirectory enumerates every *.wdl file directly inside path and runs
// AddDocument for each (spec.md §4.7); subdirectories are not searched.
func (a *Analyzer) AddDirectory(ctx context.Context, path string) error {
	matches, err := filepath.Glob(filepath.Join(path, "*.wdl"))
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parseFanout)

	for _, m := range matches {
		uri := m

		group.Go(func() error {
			return a.AddDocument(groupCtx, uri)
		})
	}

	return group.Wait()
}

// RemoveDocument drops uri from the table. It does not cascade to
// documents that import it; those keep their (now possibly dangling)
// import edge until their own next re-analysis.
func (a *Analyzer) RemoveDocument(uri string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.docs, uri)
}

// NotifyChange implements spec.md §4.7's incremental re-analysis:
// invalidate uri and every document that transitively imports it, then
// re-add uri with the new source.
func (a *Analyzer) NotifyChange(ctx context.Context, uri string, newText []byte) error {
	a.mu.Lock()

	for _, importer := range a.reverseReachable(uri) {
		if d, ok := a.docs[importer]; ok {
			stale := *d
			stale.State = StateStale
			a.docs[importer] = &stale
		}
	}

	a.mu.Unlock()

	return a.addDocument(ctx, uri, newText)
}

// reverseReachable returns every URI in the table whose import graph
// transitively reaches uri (callers must hold a.mu).
func (a *Analyzer) reverseReachable(uri string) []string {
	visited := map[string]bool{uri: true}
	queue := []string{uri}

	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for candidate := range a.docs {
			if visited[candidate] {
				continue
			}

			for _, imp := range a.docs[candidate].Imports {
				if ResolveRelative(candidate, imp.URI) == cur {
					visited[candidate] = true
					out = append(out, candidate)
					queue = append(queue, candidate)

					break
				}
			}
		}
	}

	return out
}

// Analyze implements spec.md §4.7's Analyze mutation: scope is either "" for
// every document in the table, or a single URI.
func (a *Analyzer) Analyze(scope string) []Result {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if scope != "" {
		d, ok := a.docs[scope]
		if !ok {
			return nil
		}

		return []Result{{URI: scope, Diagnostics: d.Diagnostics, Document: d}}
	}

	out := make([]Result, 0, len(a.docs))
	for uri, d := range a.docs {
		out = append(out, Result{URI: uri, Diagnostics: d.Diagnostics, Document: d})
	}

	return out
}

// Document returns the current snapshot for uri, if present.
func (a *Analyzer) Document(uri string) (*Document, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	d, ok := a.docs[uri]

	return d, ok
}
