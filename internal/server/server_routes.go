package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/logger"
	"github.com/brk3/healthdata/pkg/activity"
	"github.com/brk3/healthdata/pkg/versioninfo"
)

const maxImportBytes = 8 << 20

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, ErrorResponse{Error: msg})
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	if err := writeJSON(w, http.StatusOK, versioninfo.Current()); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

func (s *Server) requestAuthorization(w http.ResponseWriter, r *http.Request) {
	var req AuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in authorization request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Categories) == 0 {
		req.Categories = healthstore.ReadCategories
	}
	for _, c := range req.Categories {
		if !healthstore.ValidCategory(c) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", c))
			return
		}
	}

	granted, err := s.store.RequestAuthorization(r.Context(), req.Categories)
	if err != nil {
		logger.Error("Authorization request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "authorization failed")
		return
	}
	logger.Info("Authorization requested", "granted", granted, "categories", len(req.Categories))
	if err := writeJSON(w, http.StatusOK, AuthorizationResponse{Granted: granted}); err != nil {
		logger.Error("Failed to serialize authorization response", "error", err)
	}
}

func parseDays(r *http.Request) (activity.DayRange, error) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		return activity.DayRange{}, fmt.Errorf("start and end are required")
	}
	start, err := activity.ParseDate(q.Get("start"))
	if err != nil {
		return activity.DayRange{}, fmt.Errorf("bad start date: must be YYYY-MM-DD")
	}
	end, err := activity.ParseDate(q.Get("end"))
	if err != nil {
		return activity.DayRange{}, fmt.Errorf("bad end date: must be YYYY-MM-DD")
	}
	return activity.DayRange{Start: start, End: end}, nil
}

func (s *Server) summaries(w http.ResponseWriter, r *http.Request) ([]activity.Summary, bool) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	logger.Debug("Querying summaries", "range", days.String())
	sums, err := s.store.ActivitySummaries(r.Context(), days)
	if err != nil {
		logger.Error("Failed to query summaries", "range", days.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return nil, false
	}
	if sums == nil {
		sums = []activity.Summary{}
	}
	return sums, true
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	sums, ok := s.summaries(w, r)
	if !ok {
		return
	}
	if err := writeJSON(w, http.StatusOK, sums); err != nil {
		logger.Error("Failed to serialize summaries response", "error", err)
	}
}

// listEntries answers with the same text an export would publish.
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	sums, ok := s.summaries(w, r)
	if !ok {
		return
	}
	text, err := activity.Encode(activity.ProjectAll(sums))
	if err != nil {
		logger.Error("Failed to encode entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to serialize response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *Server) importSummaries(w http.ResponseWriter, r *http.Request) {
	imp, ok := s.store.(Importer)
	if !ok {
		writeError(w, http.StatusNotImplemented, "store is read-only")
		return
	}

	var sums []activity.Summary
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&sums); err != nil {
		logger.Warn("Invalid JSON in import request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	for i, sum := range sums {
		if _, ok := sum.Components.Date(); !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("summary %d: incomplete date", i))
			return
		}
	}
	if err := imp.PutSummaries(r.Context(), sums); err != nil {
		if errors.Is(err, healthstore.ErrIncompleteDate) {
			logger.Warn("Rejected summaries that cannot be keyed by day", "count", len(sums), "error", err)
			writeError(w, http.StatusBadRequest, "summary date out of range")
			return
		}
		logger.Error("Failed to import summaries", "count", len(sums), "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	logger.Info("Imported summaries", "count", len(sums))
	if err := writeJSON(w, http.StatusCreated, ImportResponse{Imported: len(sums)}); err != nil {
		logger.Error("Failed to serialize import response", "error", err)
	}
}
