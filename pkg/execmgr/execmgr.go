// Package execmgr implements the execution manager (spec.md §4.11): a
// single long-lived actor owning the analyzer handle, the run store, a
// global concurrent-run semaphore, and a run_id -> cancellation_token
// map. It accepts Submit/GetStatus/List/Cancel/GetOutputs/GetSession/
// ListSessions/Shutdown commands over one inbound channel, grounded on
// the teacher's framework.Runner/Coordinator single-owner-goroutine
// shape generalized from "stream commits through a pipeline" to "accept
// commands, spawn run workers".
package execmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/wdlrun/wdlrun/pkg/artifact"
	"github.com/wdlrun/wdlrun/pkg/backend"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/eval"
	"github.com/wdlrun/wdlrun/pkg/inputs"
	"github.com/wdlrun/wdlrun/pkg/observability"
	"github.com/wdlrun/wdlrun/pkg/runstore"
	"github.com/wdlrun/wdlrun/pkg/scope"
	"github.com/wdlrun/wdlrun/pkg/sched"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdlexec"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

const tracerName = "github.com/wdlrun/wdlrun/pkg/execmgr"

// CancelMode selects how the first Cancel call for a run behaves
// (spec.md §4.11: slow lets in-flight tasks finish, fast tears them down
// immediately; a second Cancel call always forces fast).
type CancelMode int

const (
	CancelSlow CancelMode = iota
	CancelFast
)

// Config is the Manager's fixed configuration, resolved once at startup.
type Config struct {
	Analyzer           *docgraph.Analyzer
	Store              runstore.Store
	Backend            backend.Backend
	Resources          *sched.Pool         // optional; nil disables resource admission
	Artifacts          *artifact.Mirrorer  // optional; nil disables output_dir-to-S3 mirroring
	MaxConcurrentRuns  int64               // global max_concurrent_runs gate
	MaxConcurrentCalls int64               // per-run backend submission gate, passed to each Executor
	DefaultCancelMode  CancelMode
	MaxRetries         int
	RetryableExitCodes map[int]bool
	WorkDir            string
	Metrics            *observability.REDMetrics
	RunMetrics         *observability.RunMetrics // optional; nil disables per-run task/attempt metrics
	Tracer             trace.Tracer
	InboundBuffer      int
}

// SubmitRequest is Submit's input (spec.md §4.11: validate the source,
// pick the target, create the run record, spawn a worker).
type SubmitRequest struct {
	SessionID string // if empty, a new session is created
	Command   string // recorded on a newly-created session
	CreatedBy string
	Source    string // document URI
	Target    string // explicit workflow/task name; "" to auto-pick

	Inputs     map[string]any // raw JSON/YAML-decoded input values, validated by Submit
	CancelMode *CancelMode    // overrides Config.DefaultCancelMode for this run
}

// runState is what the actor tracks for one live run, beyond what's
// already durable in the store.
type runState struct {
	cancel     context.CancelFunc
	canceling  bool
	cancelMode CancelMode
}

// Manager is the execution manager actor. Exactly one goroutine (started
// by Run) processes commands from the command channel. cancelTokens is
// also read and updated by run workers, so every access holds mu.
type Manager struct {
	cfg Config
	sem *semaphore.Weighted

	cmds chan func()

	mu           sync.Mutex
	cancelTokens map[string]*runState

	shutdownOnce sync.Once
	done         chan struct{}
}

// New builds a Manager. Call Run in its own goroutine to start the actor
// loop before issuing commands.
func New(cfg Config) *Manager {
	n := cfg.MaxConcurrentRuns
	if n <= 0 {
		n = 8
	}

	buf := cfg.InboundBuffer
	if buf <= 0 {
		buf = 64
	}

	return &Manager{
		cfg:          cfg,
		sem:          semaphore.NewWeighted(n),
		cmds:         make(chan func(), buf),
		cancelTokens: make(map[string]*runState),
		done:         make(chan struct{}),
	}
}

func (m *Manager) tracer() trace.Tracer {
	if m.cfg.Tracer != nil {
		return m.cfg.Tracer
	}

	return otel.Tracer(tracerName)
}

// Run is the actor loop: it drains m.cmds until Shutdown closes it. Each
// command is a pre-built closure so the loop itself stays generic;
// Submit's closure additionally spawns the run worker in its own
// goroutine rather than blocking the loop.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-m.cmds:
			if !ok {
				return
			}

			fn()
		}
	}
}

// dispatch submits fn to the actor loop and blocks until it runs,
// returning ctx's error if the manager shuts down or ctx is canceled
// first.
func (m *Manager) dispatch(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	wrapped := func() {
		fn()
		close(done)
	}

	select {
	case m.cmds <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return fmt.Errorf("execmgr: manager is shut down")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates the source, picks the target, creates the run record,
// and spawns a worker that runs the workflow evaluator (spec.md §4.11).
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (runID string, err error) {
	stop := m.track("Submit")
	defer func() { stop(err) }()

	if err := m.cfg.Analyzer.AddDocument(ctx, req.Source); err != nil {
		return "", fmt.Errorf("execmgr: analyze %q: %w", req.Source, err)
	}

	doc, ok := m.cfg.Analyzer.Document(req.Source)
	if !ok {
		return "", fmt.Errorf("execmgr: document %q not found after analysis", req.Source)
	}

	target, isWorkflow, err := pickTarget(doc, req.Target)
	if err != nil {
		return "", err
	}

	rawInputs := req.Inputs
	if rawInputs == nil {
		rawInputs = map[string]any{}
	}

	var targetInputs []wdltype.StructField
	if isWorkflow {
		targetInputs = doc.Workflow.Inputs
	} else {
		targetInputs = doc.Tasks[target].Inputs
	}

	if err := inputs.Validate(rawInputs, targetInputs); err != nil {
		return "", err
	}

	boundInputs, err := inputs.ToValues(rawInputs, targetInputs)
	if err != nil {
		return "", fmt.Errorf("execmgr: convert inputs: %w", err)
	}

	sessionID := req.SessionID

	dispatchErr := m.dispatch(ctx, func() {
		if sessionID == "" {
			sessionID = uuid.NewString()

			_ = m.cfg.Store.CreateSession(ctx, runstore.Session{
				ID: sessionID, Command: req.Command, CreatedBy: req.CreatedBy, CreatedAt: timeNow(),
			})
		}

		runID = uuid.NewString()
		mode := m.cfg.DefaultCancelMode

		if req.CancelMode != nil {
			mode = *req.CancelMode
		}

		runCtx, cancel := context.WithCancel(context.Background())

		m.mu.Lock()
		m.cancelTokens[runID] = &runState{cancel: cancel, cancelMode: mode}
		m.mu.Unlock()

		err = m.cfg.Store.CreateRun(ctx, runstore.Run{
			ID: runID, SessionID: sessionID, Source: req.Source, Target: target,
			Status: runstore.RunQueued, OutputDir: fmt.Sprintf("%s/%s", m.cfg.WorkDir, runID),
		})
		if err != nil {
			m.releaseToken(runID)

			return
		}

		go m.runWorker(runCtx, runID, doc, target, isWorkflow, boundInputs)
	})
	if dispatchErr != nil {
		return "", dispatchErr
	}

	return runID, err
}

// runWorker executes one run to completion, handling the global
// concurrency semaphore, resource admission, retries, and run-store
// bookkeeping.
func (m *Manager) runWorker(
	ctx context.Context, runID string, doc *docgraph.Document, target string, isWorkflow bool, boundInputs map[string]value.Value,
) {
	defer m.releaseToken(runID)

	ctx, span := m.tracer().Start(ctx, "execmgr.run")
	defer span.End()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		_ = m.cfg.Store.UpdateRunStatus(ctx, runID, runstore.RunFailed, timeNow())
		_ = m.cfg.Store.SetError(ctx, runID, err.Error())

		return
	}
	defer m.sem.Release(1)

	_ = m.cfg.Store.UpdateRunStatus(ctx, runID, runstore.RunRunning, timeNow())

	env := eval.Env{Ctx: ctx, Scope: scope.Root(), URI: doc.URI}

	var (
		knownNames []string
		wfDef      *docgraph.WorkflowDef
	)

	var taskInputs []wdltype.StructField

	if isWorkflow {
		wfDef = doc.Workflow
		taskInputs = wfDef.Inputs
	} else {
		wfDef = syntheticWorkflowForTask(target)
		taskInputs = doc.Tasks[target].Inputs
	}

	for _, f := range taskInputs {
		knownNames = append(knownNames, f.Name)
		env.Scope.Declare(f.Name, f.Type)

		if v, ok := boundInputs[f.Name]; ok {
			_ = env.Scope.Bind(f.Name, v)
		}
	}

	g, err := wdlexec.Build(wfDef, knownNames)
	if err != nil {
		m.finishFailed(ctx, runID, err)

		return
	}

	executor := &wdlexec.Executor{
		Backend:            m.cfg.Backend,
		Eval:               eval.New(nil),
		Tasks:              doc.Tasks,
		Workflows:          map[string]*docgraph.WorkflowDef{wfDef.Name: wfDef},
		MaxRetries:         m.cfg.MaxRetries,
		RetryableExitCodes: m.cfg.RetryableExitCodes,
		MaxConcurrent:      m.cfg.MaxConcurrentCalls,
		RootWorkDir:        fmt.Sprintf("%s/%s", m.cfg.WorkDir, runID),
		Resources:          m.cfg.Resources,
		ShouldStop: func() bool {
			m.mu.Lock()
			defer m.mu.Unlock()

			st, ok := m.cancelTokens[runID]

			return ok && st.canceling && st.cancelMode == CancelSlow
		},
	}

	result, err := executor.Run(ctx, g, env)
	if err != nil {
		m.finishFailed(ctx, runID, err)

		return
	}

	stats := observability.RunStats{}

	for _, rec := range result.Tasks {
		exit := 0
		status := runstore.TaskSucceeded

		if rec.Err != nil {
			status = runstore.TaskFailed
			stats.TasksFailed++
		} else {
			stats.TasksSucceeded++
		}

		stats.Attempts = append(stats.Attempts, rec.Attempts)

		_ = m.cfg.Store.RecordTask(ctx, runstore.TaskRecord{
			RunID: runID, CallPath: rec.Name, Attempt: rec.Attempts, Backend: m.cfg.Backend.Name(),
			Status: runstore.TaskStatus(status),
		})
		_ = m.cfg.Store.UpdateTask(ctx, runID, rec.Name, rec.Attempts, runstore.TaskStatus(status), &exit, timeNow())
	}

	outputsJSON, err := marshalOutputs(result.Outputs)
	if err != nil {
		m.finishFailed(ctx, runID, err)

		return
	}

	_ = m.cfg.Store.SetOutputs(ctx, runID, outputsJSON)
	_ = m.cfg.Store.UpdateRunStatus(ctx, runID, runstore.RunCompleted, timeNow())

	m.cfg.RunMetrics.RecordRun(ctx, "completed", stats)
	m.mirrorArtifacts(ctx, runID)
}

// mirrorArtifacts uploads a completed run's output directory to S3 when
// artifact mirroring is configured. It is pure convenience on top of the
// local output_dir the run already wrote to, so failures here are logged
// to the run's own record rather than flipping the run's status.
func (m *Manager) mirrorArtifacts(ctx context.Context, runID string) {
	if m.cfg.Artifacts == nil {
		return
	}

	run, err := m.cfg.Store.GetRun(ctx, runID)
	if err != nil {
		return
	}

	summary, err := m.cfg.Artifacts.Mirror(ctx, runID, run.OutputDir)
	if err != nil || (summary != nil && summary.FirstError != nil) {
		firstErr := err
		if firstErr == nil && summary != nil {
			firstErr = summary.FirstError
		}

		_ = m.cfg.Store.AppendLog(ctx, runstore.LogLine{
			RunID: runID, Source: "artifact", Line: fmt.Sprintf("artifact mirroring failed: %v", firstErr), At: timeNow(),
		})
	}
}

func (m *Manager) finishFailed(ctx context.Context, runID string, err error) {
	status := runstore.RunFailed

	m.mu.Lock()
	st, ok := m.cancelTokens[runID]
	m.mu.Unlock()

	if ok && st.canceling {
		status = runstore.RunCanceled
	}

	_ = m.cfg.Store.SetError(ctx, runID, err.Error())
	_ = m.cfg.Store.UpdateRunStatus(ctx, runID, status, timeNow())

	m.cfg.RunMetrics.RecordRun(ctx, string(status), observability.RunStats{})
}

func (m *Manager) releaseToken(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cancelTokens, runID)
}

// Cancel implements spec.md §4.11's two-mode cancel: the first call for a
// run applies its configured mode (slow: stop scheduling new calls, let
// in-flight ones finish; fast: cancel the run's context immediately). A
// second call always forces fast, regardless of the run's configured
// mode.
func (m *Manager) Cancel(ctx context.Context, runID string) error {
	stop := m.track("Cancel")

	var err error

	defer func() { stop(err) }()

	dispatchErr := m.dispatch(ctx, func() {
		m.mu.Lock()
		st, ok := m.cancelTokens[runID]
		m.mu.Unlock()

		if !ok {
			err = fmt.Errorf("execmgr: run %q is not active", runID)

			return
		}

		m.mu.Lock()
		alreadyCanceling := st.canceling
		st.canceling = true
		mode := st.cancelMode
		m.mu.Unlock()

		if alreadyCanceling || mode == CancelFast {
			st.cancel()
		} else {
			err = m.cfg.Store.UpdateRunStatus(ctx, runID, runstore.RunCanceling, timeNow())
		}
	})
	if dispatchErr != nil {
		return dispatchErr
	}

	return err
}

// GetStatus returns the run's current durable record.
func (m *Manager) GetStatus(ctx context.Context, runID string) (runstore.Run, error) {
	stop := m.track("GetStatus")
	defer func() { stop(nil) }()

	return m.cfg.Store.GetRun(ctx, runID)
}

// GetOutputs returns the run's recorded outputs JSON, once completed.
func (m *Manager) GetOutputs(ctx context.Context, runID string) (string, error) {
	stop := m.track("GetOutputs")
	defer func() { stop(nil) }()

	r, err := m.cfg.Store.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}

	return r.Outputs, nil
}

// List returns runs matching filter.
func (m *Manager) List(ctx context.Context, filter runstore.ListFilter, limit, offset int) ([]runstore.Run, error) {
	stop := m.track("List")
	defer func() { stop(nil) }()

	return m.cfg.Store.ListRuns(ctx, filter, limit, offset)
}

// GetSession returns one session's durable record.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (runstore.Session, error) {
	stop := m.track("GetSession")
	defer func() { stop(nil) }()

	return m.cfg.Store.GetSession(ctx, sessionID)
}

// ListSessions returns every run belonging to sessionID, grouped under
// it; runstore has no dedicated sessions-list query, so this composes
// GetSession with a session-scoped ListRuns.
func (m *Manager) ListSessions(ctx context.Context, sessionID string) (runstore.Session, []runstore.Run, error) {
	stop := m.track("ListSessions")
	defer func() { stop(nil) }()

	sess, err := m.cfg.Store.GetSession(ctx, sessionID)
	if err != nil {
		return runstore.Session{}, nil, err
	}

	runs, err := m.cfg.Store.ListRuns(ctx, runstore.ListFilter{SessionID: sessionID}, 0, 0)

	return sess, runs, err
}

// Shutdown stops accepting new submits, waits up to drainTimeout for
// in-flight runs, then forces cancellation of whatever remains and exits
// (spec.md §4.11).
func (m *Manager) Shutdown(ctx context.Context, drainTimeout time.Duration) {
	m.shutdownOnce.Do(func() {
		deadline := time.After(drainTimeout)

		for {
			m.mu.Lock()
			remaining := len(m.cancelTokens)
			m.mu.Unlock()

			if remaining == 0 {
				break
			}

			select {
			case <-deadline:
				m.forceCancelAll()
			case <-time.After(20 * time.Millisecond):
				continue
			}

			break
		}

		close(m.cmds)
	})

	<-m.done
}

func (m *Manager) forceCancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, st := range m.cancelTokens {
		st.cancel()
	}
}

// track wraps one command with RED metrics + a span, grounded on the
// teacher's observability.REDMetrics/TrackInflight pairing.
func (m *Manager) track(op string) func(error) {
	if m.cfg.Metrics == nil {
		return func(error) {}
	}

	start := time.Now()
	untrack := m.cfg.Metrics.TrackInflight(context.Background(), op)

	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}

		m.cfg.Metrics.RecordRequest(context.Background(), op, status, time.Since(start))
		untrack()
	}
}

// marshalOutputs renders a run's bound outputs as JSON for runstore's
// set_outputs, since value.Value has no JSON marshaler of its own (its
// String method is a debug/stdlib-coercion rendering, not JSON).
func marshalOutputs(outputs map[string]value.Value) (string, error) {
	plain := make(map[string]any, len(outputs))

	for name, v := range outputs {
		plain[name] = valueToJSON(v)
	}

	data, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("execmgr: marshal outputs: %w", err)
	}

	return string(data), nil
}

func valueToJSON(v value.Value) any {
	switch v.Type.Kind {
	case wdltype.KindNone:
		return nil
	case wdltype.KindBoolean:
		return v.AsBool()
	case wdltype.KindInt:
		return v.AsInt()
	case wdltype.KindFloat:
		return v.AsFloat()
	case wdltype.KindString, wdltype.KindFile, wdltype.KindDirectory:
		return v.AsString()
	case wdltype.KindArray:
		elems := v.AsArray()
		out := make([]any, len(elems))

		for i, e := range elems {
			out[i] = valueToJSON(e)
		}

		return out
	case wdltype.KindStruct, wdltype.KindObject:
		names := v.Fields()
		out := make(map[string]any, len(names))

		for _, n := range names {
			f, _ := v.AsField(n)
			out[n] = valueToJSON(f)
		}

		return out
	default:
		return v.String()
	}
}

// pickTarget implements spec.md §4.11's Submit target resolution:
// explicit name; otherwise the lone workflow; otherwise the lone task;
// otherwise an error.
func pickTarget(doc *docgraph.Document, explicit string) (name string, isWorkflow bool, err error) {
	if explicit != "" {
		if doc.Workflow != nil && doc.Workflow.Name == explicit {
			return explicit, true, nil
		}

		if _, ok := doc.Tasks[explicit]; ok {
			return explicit, false, nil
		}

		return "", false, fmt.Errorf("execmgr: target %q not found in %q", explicit, doc.URI)
	}

	if doc.Workflow != nil {
		return doc.Workflow.Name, true, nil
	}

	if len(doc.Tasks) == 1 {
		for name := range doc.Tasks {
			return name, false, nil
		}
	}

	return "", false, fmt.Errorf("execmgr: %q has no workflow and no single task to default to", doc.URI)
}

// syntheticWorkflowForTask lets a bare task submission reuse the same
// wdlexec.Build/Executor.Run path as a real workflow: a synthetic
// WorkflowDef whose body is a single call statement naming the task.
func syntheticWorkflowForTask(taskName string) *docgraph.WorkflowDef {
	call := syntax.NewBuilder().
		WithKind(syntax.KindCallStatement).
		WithToken(taskName).
		Build()

	body := syntax.NewBuilder().
		WithKind(syntax.KindWorkflowDef).
		WithToken("_" + taskName).
		WithChildren(call).
		Build()

	return &docgraph.WorkflowDef{
		Name: "_" + taskName,
		Node: body,
	}
}

func timeNow() time.Time { return time.Now() }
