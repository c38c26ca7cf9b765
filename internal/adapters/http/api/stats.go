package api

import (
	"net/http"
)

// StatsProvider exposes counters of the running service.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler. A nil provider yields an empty
// object.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": http.StatusText(http.StatusMethodNotAllowed)})
		return
	}

	stats := map[string]interface{}{}
	if h.provider != nil {
		stats = h.provider.GetStats()
	}
	writeJSON(w, http.StatusOK, stats)
}
