package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"supercritical/internal/deepdive"
	"supercritical/internal/export"
	"supercritical/internal/gateway/middleware"
	"supercritical/internal/orchestrator"
	"supercritical/internal/report"
	"supercritical/internal/scenario"
	"supercritical/internal/scl"
	"supercritical/internal/session"
	"supercritical/internal/store"
)

type apiServer struct {
	sessions *session.Manager
	orch     *orchestrator.Orchestrator
	dives    *deepdive.Engine
	store    store.SessionStore
	packs    *scenario.Library
	archive  *export.S3Archive
	prefs    *store.PrefsStore
	runs     *runRegistry
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session/restore", s.handleRestoreSession)
	mux.HandleFunc("POST /api/session/clear", s.handleClearSession)
	mux.HandleFunc("PATCH /api/session/constraints", s.handlePatchConstraints)
	mux.HandleFunc("POST /api/session/effects", s.handleAddEffect)
	mux.HandleFunc("DELETE /api/session/effects/{id}", s.handleRemoveEffect)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions/{id}/restore", s.handleRestoreStored)

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/runs/{id}/cancel", s.handleCancelRun)
	mux.HandleFunc("GET /api/watch/{id}", s.handleWatchSSE)
	mux.HandleFunc("GET /api/watch/{id}/ws", s.handleWatchWS)

	mux.HandleFunc("POST /api/deep-dive", s.handleDeepDive)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/export/clipboard", s.handleExportClipboard)
	mux.HandleFunc("POST /api/archive", s.handleArchive)
	mux.HandleFunc("GET /api/archive", s.handleListArchive)
	mux.HandleFunc("GET /api/archive/{key...}", s.handleFetchArchive)
	mux.HandleFunc("GET /api/report", s.handleReport)

	mux.HandleFunc("GET /api/scenarios", s.handleListScenarios)
	mux.HandleFunc("POST /api/scenarios/{id}/start", s.handleStartScenario)

	mux.HandleFunc("GET /api/prefs/intro-dismissed", s.handleGetIntroDismissed)
	mux.HandleFunc("PUT /api/prefs/intro-dismissed", s.handlePutIntroDismissed)

	return middleware.CORS(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// persist snapshots the active session. Mutations still succeed when the
// snapshot write fails; the error is only logged.
func (s *apiServer) persist(r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Printf("persist session %s: %v", sess.ID, err)
	}
}

type createSessionRequest struct {
	Mode       scl.Mode        `json:"mode"`
	Objectives []scl.Objective `json:"objectives"`
	Seeds      scl.Seeds       `json:"seeds"`
}

func (s *apiServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mode %q", req.Mode))
		return
	}
	sess := s.sessions.Create(req.Mode, req.Objectives, req.Seeds)
	s.persist(r)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *apiServer) handleRestoreSession(w http.ResponseWriter, r *http.Request) {
	var doc export.Document
	if err := decodeJSON(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if doc.Session.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session id is empty"))
		return
	}
	s.sessions.Restore(doc.Session)
	s.persist(r)
	writeJSON(w, http.StatusOK, doc.Session)
}

func (s *apiServer) handleClearSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handlePatchConstraints(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.Current(); !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	var patch scl.ConstraintsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.sessions.UpdateConstraints(patch)
	s.persist(r)
	sess, _ := s.sessions.Current()
	writeJSON(w, http.StatusOK, sess.Constraints)
}

func (s *apiServer) handleAddEffect(w http.ResponseWriter, r *http.Request) {
	var node scl.EffectNode
	if err := decodeJSON(r, &node); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.sessions.AddEffect(node); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrNoSession) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	s.persist(r)
	sess, _ := s.sessions.Current()
	writeJSON(w, http.StatusCreated, sess.EffectGraph)
}

func (s *apiServer) handleRemoveEffect(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.RemoveEffect(r.PathValue("id")); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrNoSession) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	s.persist(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sums, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sums == nil {
		sums = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *apiServer) handleRestoreStored(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	s.sessions.Restore(sess)
	writeJSON(w, http.StatusOK, sess)
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	run, err := s.orch.Generate()
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrNoSession):
			status = http.StatusNotFound
		case errors.Is(err, orchestrator.ErrRunInFlight):
			status = http.StatusConflict
		case errors.Is(err, orchestrator.ErrNoGenerator):
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}
	s.runs.add(run)
	go s.persistWhenDone(run)
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": run.ID})
}

// persistWhenDone snapshots the session once a run reaches its terminal
// event, so a restart right after generation keeps the results.
func (s *apiServer) persistWhenDone(run *orchestrator.Run) {
	<-run.Done()
	sess, ok := s.sessions.Current()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, sess); err != nil {
		log.Printf("persist session %s after run %s: %v", sess.ID, run.ID, err)
	}
}

func (s *apiServer) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("run not found"))
		return
	}
	run.Cancel()
	w.WriteHeader(http.StatusAccepted)
}

type deepDiveRequest struct {
	Level           scl.DeepDiveLevel `json:"level"`
	SelectedNodeIDs []string          `json:"selectedNodeIds"`
	UserQuestion    string            `json:"userQuestion,omitempty"`
}

func (s *apiServer) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	if s.dives == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("deep dives are not configured"))
		return
	}
	var req deepDiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dive, err := s.dives.Dive(r.Context(), deepdive.Request{
		Level:           req.Level,
		SelectedNodeIDs: req.SelectedNodeIDs,
		UserQuestion:    req.UserQuestion,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrNoSession):
			status = http.StatusNotFound
		case errors.Is(err, deepdive.ErrInvalidLevel),
			errors.Is(err, deepdive.ErrSelectionBounds),
			errors.Is(err, deepdive.ErrTertiaryNeedsSecondary):
			status = http.StatusBadRequest
		case errors.Is(err, orchestrator.ErrRunInFlight):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	s.persist(r)
	writeJSON(w, http.StatusCreated, dive)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	now := time.Now()
	data, err := export.Marshal(sess, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.FileName(sess, now)))
	_, _ = w.Write(data)
}

func (s *apiServer) handleExportClipboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	text, err := export.ClipboardText(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (s *apiServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("archive is not configured"))
		return
	}
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	key, err := s.archive.Archive(r.Context(), sess, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *apiServer) handleListArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("archive is not configured"))
		return
	}
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	keys, err := s.archive.List(r.Context(), sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// handleFetchArchive returns an archived export document by object key, or
// a presigned download link when ?presign=true.
func (s *apiServer) handleFetchArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("archive is not configured"))
		return
	}
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("object key is required"))
		return
	}
	if r.URL.Query().Get("presign") == "true" {
		url, err := s.archive.PresignedURL(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}
	doc, err := s.archive.Fetch(r.Context(), key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNoSession)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(report.ExecutiveHTML(sess, time.Now())))
}

func (s *apiServer) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	if raw := strings.TrimSpace(r.URL.Query().Get("mode")); raw != "" {
		mode := scl.Mode(raw)
		if !mode.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mode %q", raw))
			return
		}
		packs := s.packs.ForMode(mode)
		if packs == nil {
			packs = []scenario.Pack{}
		}
		writeJSON(w, http.StatusOK, packs)
		return
	}
	writeJSON(w, http.StatusOK, s.packs.Packs())
}

func (s *apiServer) handleStartScenario(w http.ResponseWriter, r *http.Request) {
	pack, ok := s.packs.ByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("scenario not found"))
		return
	}
	sess := s.sessions.Create(pack.Mode, nil, pack.SeedsCopy())
	s.persist(r)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *apiServer) handleGetIntroDismissed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"introDismissed": s.prefs.Load().IntroDismissed})
}

func (s *apiServer) handlePutIntroDismissed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntroDismissed *bool `json:"introDismissed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.IntroDismissed == nil {
		writeError(w, http.StatusBadRequest, errors.New("introDismissed is required"))
		return
	}
	if err := s.prefs.Save(store.Prefs{IntroDismissed: *req.IntroDismissed}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"introDismissed": *req.IntroDismissed})
}
