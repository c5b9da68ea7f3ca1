// Package api exposes the vade facade over HTTP. Every endpoint maps to
// one facade operation; aggregated plugin outcomes are returned as ordered
// JSON sequences.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/evannetwork/vade/pkg/observability"
	"github.com/evannetwork/vade/pkg/vade"
)

// Handlers serves the document, messaging and custom-function endpoints.
type Handlers struct {
	vade    *vade.Vade
	metrics *observability.Metrics
	log     *logrus.Logger
}

// NewHandlers creates the API handlers. metrics may be nil.
func NewHandlers(v *vade.Vade, metrics *observability.Metrics, log *logrus.Logger) *Handlers {
	if log == nil {
		log = logrus.New()
	}
	return &Handlers{
		vade:    v,
		metrics: metrics,
		log:     log,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/documents/{kind}/{key:.+}/check", h.checkDocument).Methods("POST")
	r.HandleFunc("/api/v1/documents/{kind}/{key:.+}", h.readDocument).Methods("GET")
	r.HandleFunc("/api/v1/documents/{kind}/{key:.+}", h.writeDocument).Methods("PUT")

	r.HandleFunc("/api/v1/messages/send", h.sendMessage).Methods("POST")
	r.HandleFunc("/api/v1/messages/receive", h.receiveMessage).Methods("POST")
	r.HandleFunc("/api/v1/proofs/propose", h.proposeProof).Methods("POST")
	r.HandleFunc("/api/v1/functions/{name}", h.runFunction).Methods("POST")

	r.HandleFunc("/healthz", h.healthz).Methods("GET")
}

// WriteDocumentRequest is the body for PUT /api/v1/documents/{kind}/{key}.
type WriteDocumentRequest struct {
	Payload string `json:"payload"`
}

// CheckDocumentRequest is the body for POST .../check.
type CheckDocumentRequest struct {
	Payload string `json:"payload"`
}

// MessageRequest is the body for the messaging endpoints.
type MessageRequest struct {
	Message string `json:"message"`
}

// ProofRequest is the body for POST /api/v1/proofs/propose.
type ProofRequest struct {
	Request string `json:"request"`
}

// FunctionRequest is the body for POST /api/v1/functions/{name}.
type FunctionRequest struct {
	Args []string `json:"args"`
}

// outcomeJSON is the wire form of one plugin outcome.
type outcomeJSON struct {
	Index    int    `json:"index"`
	Plugin   string `json:"plugin"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"has_value"`
	Error    string `json:"error,omitempty"`
}

func toOutcomeJSON(outcomes []vade.Outcome) []outcomeJSON {
	out := make([]outcomeJSON, len(outcomes))
	for i, o := range outcomes {
		out[i] = outcomeJSON{
			Index:    o.Index,
			Plugin:   o.Plugin,
			Value:    o.Value,
			HasValue: o.HasValue,
		}
		if o.Err != nil {
			out[i].Error = o.Err.Error()
		}
	}
	return out
}

func (h *Handlers) readDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, key := vade.Kind(vars["kind"]), vars["key"]

	start := time.Now()
	document, err := h.vade.ReadDocument(r.Context(), kind, key)
	h.recordDispatch("read_document", start, err)
	if err != nil {
		h.writeError(w, err, http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"kind":     string(kind),
		"key":      key,
		"document": document,
	})
}

func (h *Handlers) writeDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, key := vade.Kind(vars["kind"]), vars["key"]

	var req WriteDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	err := h.vade.WriteDocument(r.Context(), kind, key, req.Payload)
	h.recordDispatch("write_document", start, err)
	if err != nil {
		h.writeError(w, err, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) checkDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, key := vade.Kind(vars["kind"]), vars["key"]

	var req CheckDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	err := h.vade.CheckDocument(r.Context(), kind, key, req.Payload)
	h.recordDispatch("check_document", start, err)
	if err != nil {
		h.writeError(w, err, http.StatusUnprocessableEntity)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	h.dispatchMessage(w, r, "send_message", h.vade.SendMessage)
}

func (h *Handlers) receiveMessage(w http.ResponseWriter, r *http.Request) {
	h.dispatchMessage(w, r, "receive_message", h.vade.ReceiveMessage)
}

func (h *Handlers) dispatchMessage(w http.ResponseWriter, r *http.Request, op string,
	dispatch func(ctx context.Context, message string) ([]vade.Outcome, error)) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	outcomes, err := dispatch(r.Context(), req.Message)
	h.recordDispatch(op, start, err)
	if err != nil {
		h.writeError(w, err, http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"outcomes": toOutcomeJSON(outcomes)})
}

func (h *Handlers) proposeProof(w http.ResponseWriter, r *http.Request) {
	var req ProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	outcomes, err := h.vade.ProposeProof(r.Context(), req.Request)
	h.recordDispatch("propose_proof", start, err)
	if err != nil {
		h.writeError(w, err, http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"outcomes": toOutcomeJSON(outcomes)})
}

func (h *Handlers) runFunction(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req FunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	outcomes, err := h.vade.RunCustomFunction(r.Context(), name, req.Args...)
	h.recordDispatch("run_custom_function", start, err)
	if err != nil {
		h.writeError(w, err, http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"outcomes": toOutcomeJSON(outcomes)})
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"plugins": h.vade.PluginCount(),
	})
}

// errorResponse is the wire form of a failed call.
type errorResponse struct {
	Error    string        `json:"error"`
	Outcomes []outcomeJSON `json:"outcomes,omitempty"`
}

// writeError maps facade errors to HTTP statuses: usage errors are the
// caller's fault (400); aggregate failures use the handler's failure
// status and carry the per-plugin outcomes that led to the failure.
func (h *Handlers) writeError(w http.ResponseWriter, err error, failureStatus int) {
	resp := errorResponse{Error: err.Error()}
	status := failureStatus

	var aggErr *vade.AggregateError
	switch {
	case errors.Is(err, vade.ErrMissingKey),
		errors.Is(err, vade.ErrMissingPayload),
		errors.Is(err, vade.ErrMissingMessage),
		errors.Is(err, vade.ErrMissingFunction),
		errors.Is(err, vade.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.As(err, &aggErr):
		resp.Outcomes = toOutcomeJSON(aggErr.Outcomes)
	}

	h.writeJSON(w, status, resp)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error("failed to encode response")
	}
}

func (h *Handlers) recordDispatch(op string, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.DispatchTotal.WithLabelValues(op, dispatchOutcome(err)).Inc()
	h.metrics.DispatchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func dispatchOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var pluginErr *vade.PluginError
	var aggErr *vade.AggregateError
	switch {
	case errors.As(err, &pluginErr):
		return "plugin_error"
	case errors.As(err, &aggErr):
		return "aggregate_error"
	default:
		return "usage_error"
	}
}
