package gatewayhttp

import (
	"net/http"

	"github.com/coachlink/gateway/internal/canbus"
	"github.com/coachlink/gateway/internal/dispatch"
	"github.com/coachlink/gateway/internal/entity"
	"github.com/coachlink/gateway/internal/feature"
)

// StatusSource is the read-only view of the running gateway a status
// handler needs, satisfied by pkg/gateway's composition root.
type StatusSource interface {
	Networks() []*canbus.NetworkNode
	Features() *feature.Manager
	Entities() *entity.Registry
	DispatchCounters() *dispatch.Counters
}

// Handler serves the gateway's health/status HTTP surface.
type Handler struct {
	source StatusSource
}

// NewHandler constructs a Handler over source.
func NewHandler(source StatusSource) *Handler {
	return &Handler{source: source}
}

// Liveness handles GET /health - always 200 once the process is up.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"service": "gateway"}))
}

// Readiness handles GET /health/ready - 200 whenever the feature manager
// reports non-failed health. It does not check whether each registered
// network is attached; GET /api/v1/networks reports per-network health.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(nil, "gateway not initialized"))
		return
	}

	if h.source.Features() != nil && h.source.Features().Health() == feature.HealthFailed {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(nil, "feature manager reports failed health"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]int{"networks": len(h.source.Networks())}))
}

// NetworkStatus is the JSON shape of one network's health.
type NetworkStatus struct {
	NetworkID       string `json:"network_id"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	MessageCount    uint64 `json:"message_count"`
	ErrorCount      uint64 `json:"error_count"`
	BusOffCount     uint64 `json:"bus_off_count"`
	FaultRecoveries uint64 `json:"fault_recoveries"`
}

// Networks handles GET /api/v1/networks - per-network health snapshot.
func (h *Handler) Networks(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(nil, "gateway not initialized"))
		return
	}

	nodes := h.source.Networks()
	out := make([]NetworkStatus, 0, len(nodes))
	allHealthy := true
	for _, n := range nodes {
		hs := n.Snapshot()
		if hs.Status != canbus.StatusHealthy {
			allHealthy = false
		}
		out = append(out, NetworkStatus{
			NetworkID:       n.NetworkID,
			Status:          hs.Status.String(),
			Message:         hs.Message,
			MessageCount:    hs.MessageCount,
			ErrorCount:      hs.ErrorCount,
			BusOffCount:     hs.BusOffCount,
			FaultRecoveries: hs.FaultRecoveries,
		})
	}

	if allHealthy {
		writeJSON(w, http.StatusOK, healthyResponse(out))
	} else {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(out, "one or more networks unhealthy"))
	}
}

// FeatureStatus is the JSON shape of one feature's lifecycle state.
type FeatureStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Health   string `json:"health"`
	Disabled bool   `json:"disabled"`
	Error    string `json:"error,omitempty"`
}

// Features handles GET /api/v1/features - the feature manager's DAG
// status, per spec_full §4.8.
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	if h.source == nil || h.source.Features() == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(nil, "feature manager not initialized"))
		return
	}

	mgr := h.source.Features()
	out := make([]FeatureStatus, 0, len(mgr.All()))
	for _, f := range mgr.All() {
		fs := FeatureStatus{
			Name:     f.Name,
			State:    string(f.State()),
			Health:   string(f.Health()),
			Disabled: f.Disabled(),
		}
		if err := f.LastError(); err != nil {
			fs.Error = err.Error()
		}
		out = append(out, fs)
	}

	writeJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"overall":  string(mgr.Health()),
		"features": out,
	}))
}

// Entities handles GET /api/v1/entities - the current VehicleState-backed
// entity snapshot set, per spec_full §4.6.
func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	if h.source == nil || h.source.Entities() == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(nil, "entity registry not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(h.source.Entities().All()))
}

// DispatchSnapshot is the JSON shape of the dispatcher's counters.
type DispatchSnapshot struct {
	ByClassification map[string]uint64 `json:"by_classification"`
	DecodeErrors     uint64            `json:"decode_errors"`
	Dropped          uint64            `json:"dropped"`
}

// Dispatch handles GET /api/v1/dispatch - per-classification throughput
// and error counters, per spec_full §6.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if h.source == nil || h.source.DispatchCounters() == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(nil, "dispatcher not initialized"))
		return
	}

	snap := h.source.DispatchCounters().Snapshot()
	byClass := make(map[string]uint64, len(snap.ByClassification))
	for k, v := range snap.ByClassification {
		byClass[string(k)] = v
	}

	writeJSON(w, http.StatusOK, okResponse(DispatchSnapshot{
		ByClassification: byClass,
		DecodeErrors:     snap.DecodeErrors,
		Dropped:          snap.Dropped,
	}))
}
