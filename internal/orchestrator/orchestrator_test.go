package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"supercritical/internal/scl"
	"supercritical/internal/session"
)

const firstOrderJSON = `{
  "effects": [
    {"id": "effect_1", "title": "Faster incident response", "order": 1, "domain": "ops", "likelihood": 0.9, "impact": 3, "justification": "agents auto-triage", "confidence": 0.8}
  ],
  "connections": [],
  "leaps": []
}`

const higherOrderJSON = `{
  "effects": [
    {"id": "effect_2_1", "title": "On-call burnout drops", "order": 2, "domain": "org", "likelihood": 0.7, "impact": 2, "justification": "fewer pages", "confidence": 0.6}
  ],
  "connections": [
    {"from": "effect_1", "to": "effect_2_1", "mechanism": "reduced page volume", "confidence": 0.7, "delay": "1-2 months"}
  ],
  "leaps": [
    {"trigger": "auto-resolution rate", "threshold": "80%", "result": "humans stop reviewing", "mechanism": "trust transfer", "confidence": 0.5}
  ]
}`

const synthesisJSON = `{
  "risks": ["automation complacency"],
  "opportunities": ["reinvest on-call time"],
  "recommendedPractices": ["weekly triage audit"],
  "kpis": ["MTTR"],
  "actionPlan": ["ship auto-triage behind a flag"],
  "implementationOrder": ["flag rollout"],
  "successMetrics": ["MTTR under 10m"]
}`

// scriptedClient replays canned JSON responses in order.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	blocking  bool
	err       error
}

func (c *scriptedClient) Name() string { return "scripted" }
func (c *scriptedClient) Close() error { return nil }

func (c *scriptedClient) GenerateJSON(ctx context.Context, _ string, _ any) (json.RawMessage, error) {
	if c.blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return nil, errors.New("scripted client exhausted")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return json.RawMessage(resp), nil
}

func localOrchestrator(client *scriptedClient) (*Orchestrator, *session.Manager) {
	m := session.NewManager()
	m.Create(scl.ModeConsolidate, []scl.Objective{scl.ObjectiveOptimize}, scl.Seeds{
		ConceptIDs: []string{"multi-agent-systems"},
		PatternIDs: []string{"orchestrator-worker"},
	})
	local := NewLocalGenerator(client, NewStaticKnowledge())
	return New(m, nil, local, Options{}), m
}

func waitTerminal(t *testing.T, run *Run) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := run.Wait(ctx)
	if err != nil {
		t.Fatalf("run did not settle: %v", err)
	}
	return ev
}

func TestAcquireSingleFlight(t *testing.T) {
	o, _ := localOrchestrator(&scriptedClient{})

	release, err := o.Acquire("generate")
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := o.Acquire("deep-dive"); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("second Acquire err = %v, want ErrRunInFlight", err)
	}
	release()
	release() // releasing twice must be harmless
	if r2, err := o.Acquire("deep-dive"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	} else {
		r2()
	}
}

func TestGenerateLocalSuccess(t *testing.T) {
	client := &scriptedClient{responses: []string{firstOrderJSON, higherOrderJSON, synthesisJSON}}
	o, m := localOrchestrator(client)

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var progressSeen bool
	for ev := range run.Events() {
		if ev.Type == EventProgress {
			progressSeen = true
		}
	}
	ev, ok := run.Terminal()
	if !ok || ev.Type != EventComplete {
		t.Fatalf("terminal = %+v ok=%v, want complete", ev, ok)
	}
	if !progressSeen {
		t.Fatal("no progress events observed")
	}

	sess, _ := m.Current()
	if sess.Status != scl.StatusComplete {
		t.Fatalf("status = %s, want complete", sess.Status)
	}
	if sess.Source != scl.SourceLocal {
		t.Fatalf("source = %s, want local", sess.Source)
	}
	if len(sess.EffectGraph.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(sess.EffectGraph.Nodes))
	}
	if len(sess.EffectGraph.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(sess.EffectGraph.Edges))
	}
	// Model-chosen ids are replaced with slug ids; edges must follow.
	edge := sess.EffectGraph.Edges[0]
	if _, found := sess.EffectGraph.Node(edge.From); !found {
		t.Fatalf("edge.from %q not in graph", edge.From)
	}
	if _, found := sess.EffectGraph.Node(edge.To); !found {
		t.Fatalf("edge.to %q not in graph", edge.To)
	}
	if len(sess.Leaps) != 1 {
		t.Fatalf("leaps = %d, want 1", len(sess.Leaps))
	}
	if sess.Synthesis.Empty() {
		t.Fatal("synthesis is empty")
	}
	if overall := sess.Score.Overall(); overall < 0 || overall > 1 {
		t.Fatalf("overall score %f out of range", overall)
	}
	if sess.Audit.Model != "scripted" {
		t.Fatalf("audit model = %q", sess.Audit.Model)
	}
	if sess.Audit.PromptTokens == 0 {
		t.Fatal("prompt tokens not accounted")
	}
}

func TestGenerateWhileRunningRejected(t *testing.T) {
	client := &scriptedClient{blocking: true}
	o, _ := localOrchestrator(client)

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := o.Generate(); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("second Generate err = %v, want ErrRunInFlight", err)
	}
	run.Cancel()
	waitTerminal(t, run)
}

func TestCancelRestoresPriorState(t *testing.T) {
	client := &scriptedClient{blocking: true}
	o, m := localOrchestrator(client)
	before, _ := m.Current()

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	mid, _ := m.Current()
	if mid.Status != scl.StatusGenerating {
		t.Fatalf("status during run = %s, want generating", mid.Status)
	}

	run.Cancel()
	ev := waitTerminal(t, run)
	if ev.Type != EventCancelled {
		t.Fatalf("terminal = %s, want cancelled", ev.Type)
	}

	after, _ := m.Current()
	if after.Status != before.Status {
		t.Fatalf("status = %s, want %s restored", after.Status, before.Status)
	}
	if len(after.EffectGraph.Nodes) != len(before.EffectGraph.Nodes) {
		t.Fatal("graph mutated by cancelled run")
	}
	if after.Score != before.Score {
		t.Fatal("score mutated by cancelled run")
	}

	// The slot must be free again.
	release, err := o.Acquire("generate")
	if err != nil {
		t.Fatalf("Acquire after cancel: %v", err)
	}
	release()
}

func TestGenerateFailureSetsErrorStatus(t *testing.T) {
	client := &scriptedClient{err: errors.New("model unavailable")}
	o, m := localOrchestrator(client)

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ev := waitTerminal(t, run)
	if ev.Type != EventError {
		t.Fatalf("terminal = %s, want error", ev.Type)
	}
	if ev.Err == "" {
		t.Fatal("terminal error event has no message")
	}

	sess, _ := m.Current()
	if sess.Status != scl.StatusError {
		t.Fatalf("status = %s, want error", sess.Status)
	}
	if len(sess.EffectGraph.Nodes) != 0 {
		t.Fatal("failed run must not populate the graph")
	}
}

func backendServer(t *testing.T, pollsUntilDone int, taskOutput string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workflows/execute-template", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"workflow_id": 7})
	})
	mux.HandleFunc("GET /api/v1/workflows/7", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		done := polls >= pollsUntilDone
		mu.Unlock()
		status := "running"
		tasks := "[]"
		if done {
			status = "completed"
			tasks = fmt.Sprintf(`[{"output_data": %s}]`, taskOutput)
		}
		fmt.Fprintf(w, `{"workflow_id": 7, "status": %q, "tasks": %s}`, status, tasks)
	})
	mux.HandleFunc("POST /api/v1/workflows/7/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateViaBackend(t *testing.T) {
	output := `{"result": {"effects": [
		{"id": "b1", "title": "Backend effect", "order": 1, "domain": "ops", "likelihood": 0.8, "impact": 2, "confidence": 0.7}
	], "edges": [], "leaps": [], "synthesis": {"risks": ["r1"]}}}`
	srv := backendServer(t, 2, output)

	m := session.NewManager()
	m.Create(scl.ModeExtrapolate, nil, scl.Seeds{ConceptIDs: []string{"c1"}})
	o := New(m, NewBackendClient(srv.URL), nil, Options{
		BackendTimeout: 5 * time.Second,
		PollInterval:   10 * time.Millisecond,
	})

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ev := waitTerminal(t, run)
	if ev.Type != EventComplete {
		t.Fatalf("terminal = %+v, want complete", ev)
	}

	sess, _ := m.Current()
	if sess.Source != scl.SourceBackend {
		t.Fatalf("source = %s, want backend", sess.Source)
	}
	if len(sess.EffectGraph.Nodes) != 1 || sess.EffectGraph.Nodes[0].ID != "b1" {
		t.Fatalf("unexpected nodes: %+v", sess.EffectGraph.Nodes)
	}
	if len(sess.Synthesis.Risks) != 1 {
		t.Fatalf("synthesis risks = %v", sess.Synthesis.Risks)
	}
}

func TestBackendFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := &scriptedClient{responses: []string{firstOrderJSON, higherOrderJSON, synthesisJSON}}
	m := session.NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"c1"}})
	o := New(m, NewBackendClient(srv.URL), NewLocalGenerator(client, NewStaticKnowledge()), Options{
		BackendTimeout: time.Second,
		PollInterval:   10 * time.Millisecond,
	})

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ev := waitTerminal(t, run)
	if ev.Type != EventComplete {
		t.Fatalf("terminal = %+v, want complete", ev)
	}
	sess, _ := m.Current()
	if sess.Source != scl.SourceLocal {
		t.Fatalf("source = %s, want local after fallback", sess.Source)
	}
}

func TestBackendTimeoutWithoutLocalFails(t *testing.T) {
	srv := backendServer(t, 1<<30, "{}")

	m := session.NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{})
	o := New(m, NewBackendClient(srv.URL), nil, Options{
		BackendTimeout: 50 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	})

	run, err := o.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ev := waitTerminal(t, run)
	if ev.Type != EventError {
		t.Fatalf("terminal = %+v, want error", ev)
	}
	sess, _ := m.Current()
	if sess.Status != scl.StatusError {
		t.Fatalf("status = %s, want error", sess.Status)
	}
}

func TestAggregateWorkflowOutputs(t *testing.T) {
	mk := func(s string) json.RawMessage { return json.RawMessage(s) }
	wf := Workflow{Tasks: []WorkflowTask{
		{OutputData: mk(`{"effects": [{"id": "a", "title": "A", "order": 1}], "edges": [{"from": "a", "to": "b"}]}`)},
		{OutputData: mk(`{"result": {"effects": [{"id": "a", "title": "A dup", "order": 1}, {"id": "b", "title": "B", "order": 2}], "edges": [{"from": "a", "to": "b"}], "synthesis": {"risks": ["first"]}}}`)},
		{OutputData: mk(`{"graph": {"nodes": [{"id": "c", "title": "C", "order": 3}], "edges": [{"from": "b", "to": "c"}]}, "summary": {"risks": ["second"]}}`)},
		{OutputData: nil},
	}}

	agg, ok := aggregateOutputs(wf)
	if !ok {
		t.Fatal("expected usable outputs")
	}
	if len(agg.Effects) != 3 {
		t.Fatalf("effects = %d, want 3 (deduped by id)", len(agg.Effects))
	}
	if len(agg.Edges) != 2 {
		t.Fatalf("edges = %d, want 2 (deduped by endpoints)", len(agg.Edges))
	}
	if len(agg.Synthesis.Risks) != 1 || agg.Synthesis.Risks[0] != "second" {
		t.Fatalf("synthesis = %+v, want last non-empty", agg.Synthesis)
	}

	if _, ok := aggregateOutputs(Workflow{}); ok {
		t.Fatal("empty workflow must not aggregate")
	}
}
