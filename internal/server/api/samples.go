// Package api provides HTTP API handlers for the Mudra tooling server.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler handles HTTP requests for training sample resources.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/samples and /api/samples/{class}
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/samples")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.counts(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// Item endpoint: /api/samples/{class}
	switch r.Method {
	case http.MethodDelete:
		h.deleteClass(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type sampleRequest struct {
	Label      string             `json:"label"`
	Handedness int                `json:"handedness"`
	Points     []landmark.Point3D `json:"points"`
}

type createSamplesRequest struct {
	Samples []sampleRequest `json:"samples"`
	Source  string          `json:"source"`
}

type countsResponse struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// counts handles GET /api/samples and returns per-class sample counts.
func (h *SamplesHandler) counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Samples().CountByClass()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	writeJSON(w, http.StatusOK, countsResponse{Total: total, Counts: counts})
}

// create handles POST /api/samples and records a batch of samples.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	samples := make([]dataset.Sample, 0, len(req.Samples))
	for _, s := range req.Samples {
		if _, err := dataset.ClassIndex(s.Label); err != nil {
			writeError(w, http.StatusBadRequest, "Unknown class label "+s.Label)
			return
		}
		if len(s.Points) != landmark.NumLandmarks {
			writeError(w, http.StatusBadRequest, "Each sample needs exactly 21 landmarks")
			return
		}

		sample := dataset.Sample{Label: s.Label, Handedness: s.Handedness}
		copy(sample.Points[:], s.Points)
		samples = append(samples, sample)
	}

	if err := h.store.Samples().Create(samples, req.Source); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// deleteClass handles DELETE /api/samples/{class}.
func (h *SamplesHandler) deleteClass(w http.ResponseWriter, r *http.Request, class string) {
	if _, err := dataset.ClassIndex(class); err != nil {
		writeError(w, http.StatusNotFound, "Unknown class label "+class)
		return
	}

	if err := h.store.Samples().DeleteByClass(class); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
