package stdlib

import "sync"

// Registry is the process-wide table of built-in functions, keyed by name.
// It is immutable once built: no built-in is ever added or removed after
// Global() first runs, so concurrent lookups need no locking.
type Registry struct {
	functions map[string]Function
}

// Lookup returns the named built-in, or ok=false if it is not a recognized
// standard library function.
func (r *Registry) Lookup(name string) (Function, bool) {
	f, ok := r.functions[name]

	return f, ok
}

// Names returns every registered built-in name, unordered.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for n := range r.functions {
		names = append(names, n)
	}

	return names
}

//nolint:gochecknoglobals // built once, read-only thereafter.
var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the shared Registry of every built-in this module
// implements, building it on first call.
func Global() *Registry {
	globalOnce.Do(func() {
		fns := make(map[string]Function)

		register := func(f Function) { fns[f.Name] = f }

		for _, f := range collectionBuiltins() {
			register(f)
		}

		for _, f := range numericBuiltins() {
			register(f)
		}

		for _, f := range stringBuiltins() {
			register(f)
		}

		for _, f := range ioBuiltins() {
			register(f)
		}

		global = &Registry{functions: fns}
	})

	return global
}
