package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pair handles POST /v1/pair. The shell submits the wc: URI the user
// scanned or pasted; malformed URIs are the caller's fault, relay
// failures are not.
func (a *API) Pair(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[PairRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if req.URI == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	if err := a.sessions.Pair(r.Context(), req.URI); err != nil {
		a.log.Warn("pairing failed", "error", err)
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Disconnect handles POST /v1/disconnect. Always succeeds: with no
// session there is nothing to do but the UI still resets.
func (a *API) Disconnect(w http.ResponseWriter, r *http.Request) {
	a.sessions.Close(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /v1/session.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessions.CurrentSession()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: sess})
}

// ListApprovals handles GET /v1/approvals.
func (a *API) ListApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ApprovalsResponse{Approvals: a.broker.Pending()})
}

// ResolveApproval handles POST /v1/approvals/{promptID}: the approval
// window reports the user's decision.
func (a *API) ResolveApproval(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptID")
	req, ok := decodeJSON[DecisionRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	if err := a.broker.Resolve(promptID, decisionFromAPI(req)); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /v1/events: a server-sent event stream of signal
// envelopes, open until the client goes away.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := a.hub.Subscribe()
	defer cancel()

	for {
		select {
		case env, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				a.log.Warn("encoding event envelope", slog.String("type", env.Type), "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
