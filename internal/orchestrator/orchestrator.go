// Package orchestrator drives effect-graph generation: it prefers the
// workflow backend, falls back to direct LLM generation, and hands callers a
// run handle that streams progress until a single terminal event.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"supercritical/internal/scl"
	"supercritical/internal/session"
)

var (
	ErrRunInFlight = errors.New("orchestrator: another run is in flight")
	ErrNoGenerator = errors.New("orchestrator: no backend or local generator configured")
)

// Options tune the backend polling loop.
type Options struct {
	BackendTimeout time.Duration
	PollInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.BackendTimeout <= 0 {
		o.BackendTimeout = 15 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 1500 * time.Millisecond
	}
	return o
}

// Orchestrator coordinates generation runs against a session manager. At most
// one expensive operation (generation or deep dive) runs at a time.
type Orchestrator struct {
	sessions *session.Manager
	backend  *BackendClient
	local    *LocalGenerator
	opts     Options

	mu     sync.Mutex
	holder string
	active *Run
}

// New builds an orchestrator. backend and local may each be nil, but not both.
func New(sessions *session.Manager, backend *BackendClient, local *LocalGenerator, opts Options) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		backend:  backend,
		local:    local,
		opts:     opts.withDefaults(),
	}
}

// Acquire claims the single-flight slot for the labeled operation. The
// returned release func must be called exactly once.
func (o *Orchestrator) Acquire(label string) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.holder != "" {
		return nil, fmt.Errorf("%w (%s)", ErrRunInFlight, o.holder)
	}
	o.holder = label
	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			o.holder = ""
			o.active = nil
			o.mu.Unlock()
		})
	}, nil
}

// ActiveRun returns the in-flight generation run, if any.
func (o *Orchestrator) ActiveRun() (*Run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active, o.active != nil
}

// Generate starts an asynchronous generation run for the current session.
// The run detaches from the caller's context; use the handle to observe or
// cancel it.
func (o *Orchestrator) Generate() (*Run, error) {
	if o.backend == nil && o.local == nil {
		return nil, ErrNoGenerator
	}
	sess, ok := o.sessions.Current()
	if !ok {
		return nil, session.ErrNoSession
	}
	release, err := o.Acquire("generate")
	if err != nil {
		return nil, err
	}

	prior := sess.Status
	o.sessions.SetStatus(scl.StatusGenerating)

	ctx, cancel := context.WithCancel(context.Background())
	run := newRun(uuid.NewString(), cancel)
	o.mu.Lock()
	o.active = run
	o.mu.Unlock()

	go o.execute(ctx, run, sess, prior, release)
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, sess scl.Session, prior scl.SessionStatus, release func()) {
	defer release()

	if o.backend != nil {
		res, err := o.generateViaBackend(ctx, run, sess)
		switch {
		case err == nil:
			o.complete(run, res)
			return
		case ctx.Err() != nil:
			o.abort(run, prior)
			return
		case o.local == nil:
			o.fail(run, err)
			return
		default:
			log.Printf("orchestrator: backend generation failed, falling back to local: %v", err)
			run.progress("Backend unavailable, generating locally...", 0.05)
		}
	}

	res, err := o.generateLocally(ctx, run, sess)
	switch {
	case err == nil:
		o.complete(run, res)
	case ctx.Err() != nil:
		o.abort(run, prior)
	default:
		o.fail(run, err)
	}
}

func (o *Orchestrator) generateViaBackend(ctx context.Context, run *Run, sess scl.Session) (session.GenerationResult, error) {
	summary, err := BuildContextSummary(ctx, StaticContextFallback(o.local), sess.Seeds)
	if err != nil {
		return session.GenerationResult{}, err
	}
	run.progress("Starting backend workflow...", 0.1)
	workflowID, err := o.backend.StartGeneration(ctx, sess, summary)
	if err != nil {
		return session.GenerationResult{}, err
	}

	deadline := time.Now().Add(o.opts.BackendTimeout)
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best effort; the workflow may already be past cancelling.
			cancelCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := o.backend.CancelWorkflow(cancelCtx, workflowID); err != nil {
				log.Printf("orchestrator: cancel workflow %d: %v", workflowID, err)
			}
			cancel()
			return session.GenerationResult{}, ctx.Err()
		case <-ticker.C:
		}

		wf, err := o.backend.GetWorkflow(ctx, workflowID)
		if err != nil {
			return session.GenerationResult{}, err
		}
		switch wf.Status {
		case "completed", "succeeded":
			agg, ok := aggregateOutputs(wf)
			if !ok {
				return session.GenerationResult{}, fmt.Errorf("orchestrator: workflow %d produced no usable outputs", workflowID)
			}
			return o.resultFromAggregate(sess, agg), nil
		case "failed", "cancelled":
			return session.GenerationResult{}, fmt.Errorf("orchestrator: workflow %d ended with status %q", workflowID, wf.Status)
		}
		run.progress("Waiting for backend workflow...", 0.3)

		if time.Now().After(deadline) {
			return session.GenerationResult{}, fmt.Errorf("orchestrator: workflow %d timed out after %s", workflowID, o.opts.BackendTimeout)
		}
	}
}

func (o *Orchestrator) resultFromAggregate(sess scl.Session, agg aggregated) session.GenerationResult {
	score := scl.ComputeScore(agg.Effects, agg.Leaps, agg.Synthesis)
	audit := scl.Audit{
		Sources:   append(append([]string(nil), sess.Seeds.ConceptIDs...), sess.Seeds.PatternIDs...),
		Model:     "backend",
		Version:   session.Version,
		Timestamp: scl.NowUnixMilli(),
	}
	return session.GenerationResult{
		EffectGraph: scl.EffectGraph{Nodes: agg.Effects, Edges: agg.Edges},
		Leaps:       agg.Leaps,
		Synthesis:   agg.Synthesis,
		Score:       score,
		Audit:       audit,
		Source:      scl.SourceBackend,
	}
}

func (o *Orchestrator) generateLocally(ctx context.Context, run *Run, sess scl.Session) (session.GenerationResult, error) {
	if o.local == nil {
		return session.GenerationResult{}, ErrNoGenerator
	}
	res, err := o.local.Generate(ctx, sess, run.progress)
	if err != nil {
		return session.GenerationResult{}, err
	}
	res.Audit.Version = session.Version
	return session.GenerationResult{
		EffectGraph: scl.EffectGraph{Nodes: res.Effects, Edges: res.Edges},
		Leaps:       res.Leaps,
		Synthesis:   res.Synthesis,
		Score:       scl.ComputeScore(res.Effects, res.Leaps, res.Synthesis),
		Audit:       res.Audit,
		Source:      scl.SourceLocal,
	}, nil
}

func (o *Orchestrator) complete(run *Run, res session.GenerationResult) {
	if err := o.sessions.ApplyGenerationResult(res); err != nil {
		o.fail(run, err)
		return
	}
	run.finish(Event{Type: EventComplete, Step: "Complete!", Progress: 1.0})
}

func (o *Orchestrator) fail(run *Run, err error) {
	o.sessions.SetStatus(scl.StatusError)
	run.finish(Event{Type: EventError, Err: err.Error()})
}

// abort restores the pre-run status so a cancelled regeneration does not
// clobber an already complete session.
func (o *Orchestrator) abort(run *Run, prior scl.SessionStatus) {
	o.sessions.SetStatus(prior)
	run.finish(Event{Type: EventCancelled, Step: "Cancelled"})
}

// StaticContextFallback reuses the local generator's knowledge source for
// backend runs, or an empty catalog when there is none.
func StaticContextFallback(local *LocalGenerator) Knowledge {
	if local != nil && local.knowledge != nil {
		return local.knowledge
	}
	return NewStaticKnowledge()
}
