package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"supercritical/internal/deepdive"
	"supercritical/internal/scl"
)

// BackendClient talks to the generation workflow service. The wire schema is
// owned by the backend; this client only needs the response to decompose into
// the session's output fields.
type BackendClient struct {
	http    *http.Client
	baseURL string
}

func NewBackendClient(baseURL string) *BackendClient {
	return &BackendClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

type startWorkflowRequest struct {
	Template         string         `json:"template"`
	ExecutionContext map[string]any `json:"execution_context"`
	OverrideInput    map[string]any `json:"override_input"`
	CreatedBy        string         `json:"created_by"`
}

type startWorkflowResponse struct {
	WorkflowID int64 `json:"workflow_id"`
}

// Workflow is the polled state of a backend workflow.
type Workflow struct {
	WorkflowID int64          `json:"workflow_id"`
	Status     string         `json:"status"`
	Tasks      []WorkflowTask `json:"tasks"`
}

type WorkflowTask struct {
	OutputData json.RawMessage `json:"output_data"`
}

// StartGeneration kicks off the "scl" workflow template and returns its id.
func (c *BackendClient) StartGeneration(ctx context.Context, sess scl.Session, summary scl.ContextSummary) (int64, error) {
	req := startWorkflowRequest{
		Template: "scl",
		ExecutionContext: map[string]any{
			"sessionId": sess.ID,
			"mode":      sess.Mode,
		},
		OverrideInput: map[string]any{
			"seeds":          sess.Seeds,
			"constraints":    sess.Constraints,
			"contextSummary": summary,
		},
		CreatedBy: "scl-core",
	}
	var resp startWorkflowResponse
	if err := c.postJSON(ctx, "/api/v1/workflows/execute-template", req, &resp); err != nil {
		return 0, err
	}
	if resp.WorkflowID == 0 {
		return 0, fmt.Errorf("backend: start returned no workflow id")
	}
	return resp.WorkflowID, nil
}

// GetWorkflow fetches the current workflow state.
func (c *BackendClient) GetWorkflow(ctx context.Context, id int64) (Workflow, error) {
	var wf Workflow
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/workflows/%d", id), &wf); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

// CancelWorkflow asks the backend to abort a workflow.
func (c *BackendClient) CancelWorkflow(ctx context.Context, id int64) error {
	return c.postJSON(ctx, fmt.Sprintf("/api/v1/workflows/%d/cancel", id), struct{}{}, nil)
}

// Expand issues a synchronous deep-dive request. Implements deepdive.Expander.
func (c *BackendClient) Expand(ctx context.Context, req deepdive.ExpandRequest) (deepdive.Expansion, error) {
	payload := map[string]any{
		"sessionId":     req.Session.ID,
		"mode":          req.Session.Mode,
		"constraints":   req.Session.Constraints,
		"selectedNodes": req.SelectedNodes,
		"level":         req.Level,
	}
	if req.UserQuestion != "" {
		payload["userQuestion"] = req.UserQuestion
	}
	var raw struct {
		Effects        []scl.EffectNode `json:"effects"`
		Edges          []scl.Edge       `json:"edges"`
		Leaps          []scl.Leap       `json:"leaps"`
		Findings       json.RawMessage  `json:"findings"`
		PromptTokens   int              `json:"promptTokens"`
		ResponseTokens int              `json:"responseTokens"`
	}
	if err := c.postJSON(ctx, "/api/v1/scl/deep-dive", payload, &raw); err != nil {
		return deepdive.Expansion{}, err
	}
	findings, err := scl.UnmarshalFindings(raw.Findings)
	if err != nil {
		return deepdive.Expansion{}, fmt.Errorf("backend: %w", err)
	}
	return deepdive.Expansion{
		Effects:        raw.Effects,
		Edges:          raw.Edges,
		Leaps:          raw.Leaps,
		Findings:       findings,
		PromptTokens:   raw.PromptTokens,
		ResponseTokens: raw.ResponseTokens,
	}, nil
}

// aggregated is the union of parseable task outputs from one workflow.
type aggregated struct {
	Effects   []scl.EffectNode
	Edges     []scl.Edge
	Leaps     []scl.Leap
	Synthesis scl.Synthesis
}

// aggregateOutputs merges workflow task outputs into SCL structures. Tasks
// may nest their result under "result", "graph", or "effectGraph"; effects
// are deduplicated by id, edges by endpoint pair, and the last non-empty
// synthesis wins. Returns false when nothing usable was produced.
func aggregateOutputs(wf Workflow) (aggregated, bool) {
	var out aggregated
	seenEffects := map[string]struct{}{}
	seenEdges := map[string]struct{}{}

	for _, task := range wf.Tasks {
		if len(task.OutputData) == 0 {
			continue
		}
		effects, edges, leaps, synthesis := pickOutputs(task.OutputData)
		for _, e := range effects {
			id := e.ID
			if id == "" {
				id = fmt.Sprintf("%s-%d", e.Title, e.Order)
			}
			if _, dup := seenEffects[id]; dup {
				continue
			}
			seenEffects[id] = struct{}{}
			out.Effects = append(out.Effects, e)
		}
		for _, ed := range edges {
			key := ed.From + "|" + ed.To
			if _, dup := seenEdges[key]; dup {
				continue
			}
			seenEdges[key] = struct{}{}
			out.Edges = append(out.Edges, ed)
		}
		out.Leaps = append(out.Leaps, leaps...)
		if synthesis != nil && !synthesis.Empty() {
			out.Synthesis = *synthesis
		}
	}

	ok := len(out.Effects) > 0 || len(out.Edges) > 0 || len(out.Leaps) > 0 || !out.Synthesis.Empty()
	return out, ok
}

func pickOutputs(raw json.RawMessage) ([]scl.EffectNode, []scl.Edge, []scl.Leap, *scl.Synthesis) {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	candidate := raw
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Result) > 0 {
		candidate = envelope.Result
	}

	var body struct {
		Effects     []scl.EffectNode `json:"effects"`
		Nodes       []scl.EffectNode `json:"nodes"`
		Edges       []scl.Edge       `json:"edges"`
		Links       []scl.Edge       `json:"links"`
		Leaps       []scl.Leap       `json:"leaps"`
		Synthesis   *scl.Synthesis   `json:"synthesis"`
		Summary     *scl.Synthesis   `json:"summary"`
		Graph       *scl.EffectGraph `json:"graph"`
		EffectGraph *scl.EffectGraph `json:"effectGraph"`
	}
	if err := json.Unmarshal(candidate, &body); err != nil {
		return nil, nil, nil, nil
	}

	effects := body.Effects
	edges := body.Edges
	if g := firstGraph(body.Graph, body.EffectGraph); g != nil {
		if len(effects) == 0 {
			effects = g.Nodes
		}
		if len(edges) == 0 {
			edges = g.Edges
		}
	}
	if len(effects) == 0 {
		effects = body.Nodes
	}
	if len(edges) == 0 {
		edges = body.Links
	}
	synthesis := body.Synthesis
	if synthesis == nil {
		synthesis = body.Summary
	}
	return effects, edges, body.Leaps, synthesis
}

func firstGraph(graphs ...*scl.EffectGraph) *scl.EffectGraph {
	for _, g := range graphs {
		if g != nil {
			return g
		}
	}
	return nil
}

func (c *BackendClient) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *BackendClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *BackendClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("backend: unexpected status %s: %s", resp.Status, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
