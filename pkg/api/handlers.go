package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/perfstore/pkg/results"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTestNames returns the distinct stored test names.
func (s *server) handleTestNames(w http.ResponseWriter, r *http.Request) {
	s.storeMu.Lock()
	names, err := s.store.TestNames(r.Context())
	s.storeMu.Unlock()

	if err != nil {
		s.log.WithError(err).Error("Failed to load test names")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading test names"})

		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"tests": names})
}

// handleTestResults returns the full execution history for one test name.
func (s *server) handleTestResults(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.storeMu.Lock()
	history, err := s.store.TestResults(r.Context(), name)
	s.storeMu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("test", name).
			Error("Failed to load test results")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading test results"})

		return
	}

	if len(history.Executions) == 0 {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"no results for test"})

		return
	}

	writeJSON(w, http.StatusOK, history)
}

// handleReport stores a reported PerformanceResults document.
func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	var res results.PerformanceResults
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid results payload"})

		return
	}

	if res.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"display_name is required"})

		return
	}

	if res.TestTime.IsZero() {
		res.TestTime = time.Now().UTC()
	}

	s.storeMu.Lock()
	err := s.store.Report(r.Context(), &res)
	s.storeMu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("test", res.DisplayName).
			Error("Failed to store results")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"storing results"})

		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}
