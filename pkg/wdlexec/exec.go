package wdlexec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wdlrun/wdlrun/pkg/backend"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/eval"
	"github.com/wdlrun/wdlrun/pkg/sched"
	"github.com/wdlrun/wdlrun/pkg/scope"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// TaskStatus mirrors backend.Status but is recorded independently of any
// one backend, since a run's task record outlives the handle.
type TaskStatus = backend.Status

// TaskRecord is the outcome of running one NodeCall, including the final
// attempt count.
type TaskRecord struct {
	Name     string
	Target   string
	Attempts int
	Status   TaskStatus
	Outputs  map[string]value.Value
	Err      error
}

// RunResult is a completed workflow execution's final bindings plus the
// per-task audit trail.
type RunResult struct {
	Outputs map[string]value.Value
	Tasks   []*TaskRecord
}

// Executor drives a Graph to completion (spec.md §4.8 Phase B): dynamic
// topological execution with a global concurrency semaphore and
// configurable per-task retries, grounded on the teacher's
// framework.Runner worker-pool shape but generalized from "one worker per
// CPU-heavy analyzer" to "one semaphore slot per in-flight task".
type Executor struct {
	Backend    backend.Backend
	Eval       *eval.Evaluator
	Registry   *wdltype.Registry
	Tasks      map[string]*docgraph.TaskDef
	Workflows  map[string]*docgraph.WorkflowDef
	MaxRetries int
	// RetryableExitCodes is the set of process exit codes worth retrying;
	// a nil/empty map means a clean nonzero exit is never retried.
	RetryableExitCodes map[int]bool
	MaxConcurrent      int64
	RootWorkDir        string

	// Resources, if set, gates every call's Submit behind a cpu/memory/
	// disk admission check (spec.md §4.9's resource envelope) in addition
	// to the MaxConcurrent slot count. A nil Resources means calls are
	// bounded only by concurrency, never by resource envelope.
	Resources *sched.Pool

	// ShouldStop, if set, is polled before dispatching each wave. It
	// lets a caller (pkg/execmgr's slow-cancel mode) stop a run from
	// starting any new call while letting already-dispatched ones finish,
	// without canceling ctx out from under them.
	ShouldStop func() bool

	sema     *semaphore.Weighted
	semaOnce sync.Once

	mu    sync.Mutex
	tasks []*TaskRecord
}

func (e *Executor) semaphore() *semaphore.Weighted {
	e.semaOnce.Do(func() {
		n := e.MaxConcurrent
		if n <= 0 {
			n = 4
		}

		e.sema = semaphore.NewWeighted(n)
	})

	return e.sema
}

func (e *Executor) recordTask(r *TaskRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tasks = append(e.tasks, r)
}

// Records returns every TaskRecord accumulated so far, including ones from
// calls that ultimately failed — useful for inspecting a Run that
// returned an error.
func (e *Executor) Records() []*TaskRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*TaskRecord, len(e.tasks))
	copy(out, e.tasks)

	return out
}

// Run executes every node in g against env's scope, in dependency order,
// dispatching independent nodes concurrently up to MaxConcurrent.
func (e *Executor) Run(ctx context.Context, g *Graph, env eval.Env) (*RunResult, error) {
	if err := e.runNodes(ctx, g.Order(), env); err != nil {
		return nil, err
	}

	outputs := make(map[string]value.Value)

	for _, name := range env.Scope.LocalNames() {
		if b, ok := env.Scope.Lookup(name); ok && b.Bound {
			outputs[name] = b.Value
		}
	}

	return &RunResult{Outputs: outputs, Tasks: e.tasks}, nil
}

// runNodes executes nodes whose dependencies are already satisfied
// concurrently, in waves, until every node in the slice has run. Each
// wave is the maximal subset of the remaining nodes ready to start.
func (e *Executor) runNodes(ctx context.Context, nodes []*Node, env eval.Env) error {
	remaining := nodes
	done := make(map[string]bool, len(nodes))

	// Only names produced inside this slice are waited on; anything else a
	// node references (workflow inputs, a scatter variable, names from an
	// enclosing body) is already in scope.
	pending := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		for _, name := range n.outputNames() {
			pending[name] = true
		}
	}

	for len(remaining) > 0 {
		var (
			wave []*Node
			next []*Node
		)

		for _, n := range remaining {
			ready := true

			for _, dep := range n.DependsOn {
				if pending[dep] && !done[dep] {
					ready = false

					break
				}
			}

			if ready {
				wave = append(wave, n)
			} else {
				next = append(next, n)
			}
		}

		if len(wave) == 0 {
			return fmt.Errorf("wdlexec: no progress possible, a dependency is never satisfied")
		}

		if e.ShouldStop != nil && e.ShouldStop() {
			return fmt.Errorf("wdlexec: run stopped before completing all nodes")
		}

		if err := e.runWave(ctx, wave, env); err != nil {
			return err
		}

		for _, n := range wave {
			for _, name := range n.outputNames() {
				done[name] = true
			}
		}

		remaining = next
	}

	return nil
}

func (e *Executor) runWave(ctx context.Context, wave []*Node, env eval.Env) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, n := range wave {
		node := n

		group.Go(func() error {
			return e.runNode(groupCtx, node, env)
		})
	}

	return group.Wait()
}

func (e *Executor) runNode(ctx context.Context, n *Node, env eval.Env) error {
	switch n.Kind {
	case NodeDeclaration:
		return e.runDeclaration(ctx, n, env)
	case NodeCall:
		return e.runCall(ctx, n, env)
	case NodeScatter:
		return e.runScatter(ctx, n, env)
	case NodeConditional:
		return e.runConditional(ctx, n, env)
	default:
		return fmt.Errorf("wdlexec: unknown node kind %v", n.Kind)
	}
}

func (e *Executor) runDeclaration(ctx context.Context, n *Node, env eval.Env) error {
	if len(n.Syntax.Children) == 0 {
		return fmt.Errorf("wdlexec: declaration %q has no initializer", n.Name)
	}

	callEnv := env
	callEnv.Ctx = ctx

	v, diagErr := e.Eval.Eval(n.Syntax.Children[0], callEnv)
	if diagErr != nil {
		return fmt.Errorf("wdlexec: %s", diagErr.Message)
	}

	if _, ok := env.Scope.Lookup(n.Name); !ok {
		env.Scope.Declare(n.Name, v.Type)
	}

	return env.Scope.Bind(n.Name, v)
}

func (e *Executor) runCall(ctx context.Context, n *Node, env eval.Env) error {
	sem := e.semaphore()
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}

	defer sem.Release(1)

	task, ok := e.Tasks[n.CallTarget]
	if !ok {
		return fmt.Errorf("wdlexec: call %q references unknown task %q", n.Name, n.CallTarget)
	}

	if e.Resources != nil {
		release, admitErr := e.Resources.Admit(ctx, taskResources(task.Node))
		if admitErr != nil {
			return fmt.Errorf("wdlexec: call %q could not be admitted: %w", n.Name, admitErr)
		}

		defer release()
	}

	record := &TaskRecord{Name: n.Name, Target: n.CallTarget}
	workDir := filepath.Join(e.RootWorkDir, sanitizeDirName(n.Name)+"-"+uuid.NewString())

	result, runErr := e.submitWithRetry(ctx, task, workDir, env, record)

	if runErr != nil {
		record.Status = backend.StatusFailed
		record.Err = runErr
		e.recordTask(record)

		return fmt.Errorf("wdlexec: call %q failed: %w", n.Name, runErr)
	}

	if result.ExitCode != 0 {
		record.Status = backend.StatusFailed
		record.Err = fmt.Errorf("call exited %d", result.ExitCode)
		e.recordTask(record)

		return fmt.Errorf("wdlexec: call %q exited %d", n.Name, result.ExitCode)
	}

	record.Status = backend.StatusSucceeded

	outputs, err := e.coerceOutputs(task, workDir)
	if err != nil {
		record.Status = backend.StatusFailed
		record.Err = err
		e.recordTask(record)

		return err
	}

	record.Outputs = outputs
	e.recordTask(record)

	objFields := make([]string, 0, len(outputs))
	objVals := make([]value.Value, 0, len(outputs))

	for _, f := range task.Outputs {
		objFields = append(objFields, f.Name)
		objVals = append(objVals, outputs[f.Name])
	}

	callValue := value.ObjectVal(objFields, objVals)

	if _, ok := env.Scope.Lookup(n.Name); !ok {
		env.Scope.Declare(n.Name, wdltype.Object())
	}

	return env.Scope.Bind(n.Name, callValue)
}

// submitWithRetry submits task's command up to MaxRetries+1 times,
// retrying on a submit/transport error or on an exit code listed in
// RetryableExitCodes, per spec.md §4.8's configurable retry policy.
func (e *Executor) submitWithRetry(
	ctx context.Context, task *docgraph.TaskDef, workDir string, env eval.Env, record *TaskRecord,
) (backend.Result, error) {
	maxAttempts := e.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	cmdText := commandText(task.Node)

	var (
		result backend.Result
		lastErr error
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		record.Attempts = attempt

		rendered, renderErr := renderCommand(cmdText, env.Scope, env.Imports)
		if renderErr != nil {
			return backend.Result{}, renderErr
		}

		spec := backend.Spec{
			CallPath:  record.Name,
			Command:   rendered,
			WorkDir:   workDir,
			Resources: taskResources(task.Node),
		}

		h, submitErr := e.Backend.Submit(ctx, spec)
		if submitErr != nil {
			lastErr = submitErr

			continue
		}

		result, lastErr = e.Backend.Await(ctx, h)
		if lastErr != nil {
			continue
		}

		if result.ExitCode == 0 {
			return result, nil
		}

		if !e.RetryableExitCodes[result.ExitCode] {
			return result, nil
		}

		lastErr = fmt.Errorf("exit %d, retrying", result.ExitCode)
	}

	if lastErr != nil {
		return backend.Result{}, lastErr
	}

	return result, nil
}

// coerceOutputs resolves each declared output by looking for a file named
// after the output inside workDir — the reduced-grammar TaskDef carries
// only an output's inferred type, not the producing expression, so this
// stands in for evaluating an `output { File x = "..." }` expression.
func (e *Executor) coerceOutputs(task *docgraph.TaskDef, workDir string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(task.Outputs))

	for _, field := range task.Outputs {
		path := filepath.Join(workDir, field.Name)

		var v value.Value

		if _, err := os.Stat(path); err == nil {
			switch field.Type.Kind {
			case wdltype.KindDirectory:
				v = value.DirVal(path)
			default:
				v = value.FileVal(path)
			}
		} else if field.Type.Optional {
			v = value.None()
		} else {
			return nil, fmt.Errorf("wdlexec: required output %q was not produced in %s", field.Name, workDir)
		}

		coerced, err := value.Coerce(v, field.Type)
		if err != nil {
			return nil, fmt.Errorf("wdlexec: output %q: %w", field.Name, err)
		}

		out[field.Name] = coerced
	}

	return out, nil
}

func (e *Executor) runScatter(ctx context.Context, n *Node, env eval.Env) error {
	b, ok := scope.QualifiedLookup(env.Scope, env.Imports, n.CollectionExpr)
	if !ok || !b.Bound {
		return fmt.Errorf("wdlexec: scatter collection %q is unresolved", n.CollectionExpr)
	}

	elems := b.Value.AsArray()
	iterationScopes := make([]*scope.Scope, len(elems))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, elem := range elems {
		idx := i
		el := elem

		group.Go(func() error {
			iterScope := env.Scope.Child()
			iterScope.Declare(n.IterVar, el.Type)

			if err := iterScope.Bind(n.IterVar, el); err != nil {
				return err
			}

			iterEnv := env
			iterEnv.Scope = iterScope

			if err := e.runNodes(groupCtx, n.Body, iterEnv); err != nil {
				return err
			}

			iterationScopes[idx] = iterScope

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	view := scope.NewArrayView(iterationScopes)
	bindViewOutputs(env.Scope, view, n.outputNames())

	return nil
}

func (e *Executor) runConditional(ctx context.Context, n *Node, env eval.Env) error {
	b, ok := scope.QualifiedLookup(env.Scope, env.Imports, n.ConditionExpr)
	if !ok || !b.Bound {
		return fmt.Errorf("wdlexec: condition %q is unresolved", n.ConditionExpr)
	}

	condTrue := b.Value.Type.Kind == wdltype.KindBoolean && b.Value.AsBool()

	bodyScope := env.Scope.Child()
	bodyEnv := env
	bodyEnv.Scope = bodyScope

	if condTrue {
		if err := e.runNodes(ctx, n.Body, bodyEnv); err != nil {
			return err
		}
	}

	view := scope.NewOptionalView(bodyScope, condTrue)
	bindViewOutputs(env.Scope, view, n.outputNames())

	return nil
}

// scopeView is whatever a ArrayView/OptionalView Lookup needs to expose.
type scopeView interface {
	Lookup(name string) (*scope.Binding, bool)
}

func bindViewOutputs(dest *scope.Scope, view scopeView, names []string) {
	for _, name := range names {
		b, ok := view.Lookup(name)
		if !ok {
			continue
		}

		if _, declared := dest.Lookup(name); !declared {
			dest.Declare(name, b.Type)
		}

		if b.Bound {
			_ = dest.Bind(name, b.Value)
		}
	}
}

func sanitizeDirName(name string) string {
	out := make([]rune, 0, len(name))

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}

	if len(out) == 0 {
		return "call"
	}

	return string(out)
}
