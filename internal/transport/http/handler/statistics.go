package handler

import (
	"net/http"

	"github.com/election-trust-api/internal/application/analytics"
)

// StatisticsHandler serves the aggregate election statistics and the
// leading-digit conformance analysis.
type StatisticsHandler struct {
	svc analytics.Service
}

func NewStatisticsHandler(svc analytics.Service) *StatisticsHandler {
	return &StatisticsHandler{svc: svc}
}

func (h *StatisticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Statistics(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *StatisticsHandler) Benford(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Benford(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
