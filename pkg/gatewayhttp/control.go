package gatewayhttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coachlink/gateway/pkg/control/token"
)

// ControlAck is the outcome of one control command, mirroring
// gateway.Service.Control's return value.
type ControlAck struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	CommandID string `json:"command_id,omitempty"`
}

// ControlFunc issues one control command against the running gateway,
// satisfied by pkg/gateway's Service.Control.
type ControlFunc func(entityID, command string, params map[string]any) (ControlAck, error)

type controlRequest struct {
	EntityID string         `json:"entity_id"`
	Command  string         `json:"command"`
	Params   map[string]any `json:"params"`
}

// ControlHandler serves POST /api/v1/control, optionally gated behind a
// bearer token carrying the control scope (spec_full §5).
type ControlHandler struct {
	issue    ControlFunc
	verifier *token.Verifier
}

// NewControlHandler constructs a ControlHandler. verifier may be nil, in
// which case no token is required.
func NewControlHandler(issue ControlFunc, verifier *token.Verifier) *ControlHandler {
	return &ControlHandler{issue: issue, verifier: verifier}
}

// Control handles POST /api/v1/control.
func (h *ControlHandler) Control(w http.ResponseWriter, r *http.Request) {
	if h.verifier != nil {
		tok := bearerToken(r)
		if tok == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse("missing bearer token"))
			return
		}
		if _, err := h.verifier.Verify(tok); err != nil {
			writeJSON(w, http.StatusForbidden, errorResponse(err.Error()))
			return
		}
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}
	if req.EntityID == "" || req.Command == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("entity_id and command are required"))
		return
	}

	ack, err := h.issue(req.EntityID, req.Command, req.Params)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, okResponse(ack))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}
