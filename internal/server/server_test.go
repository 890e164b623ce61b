package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/store"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return New(Config{Store: s}), s
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestServer_Health_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func sampleBody(label string) []byte {
	points := make([]landmark.Point3D, landmark.NumLandmarks)
	for i := range points {
		points[i] = landmark.Point3D{
			X: 0.1 + 0.02*float64(i),
			Y: 0.9 - 0.02*float64(i),
		}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"source": "test",
		"samples": []map[string]interface{}{
			{"label": label, "handedness": 1, "points": points},
		},
	})
	return body
}

func TestServer_SamplesAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("create", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/samples", bytes.NewReader(sampleBody("two")))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("counts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/samples", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Total  int            `json:"total"`
			Counts map[string]int `json:"counts"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if body.Total != 1 || body.Counts["two"] != 1 {
			t.Errorf("counts = %+v, want total 1 with two:1", body)
		}
	})

	t.Run("unknown label rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/samples", bytes.NewReader(sampleBody("eleven")))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("delete class", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/samples/two", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		req = httptest.NewRequest(http.MethodGet, "/api/samples", nil)
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		var body struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if body.Total != 0 {
			t.Errorf("total after delete = %d, want 0", body.Total)
		}
	})
}

func TestServer_RunsAPI(t *testing.T) {
	srv, s := newTestServer(t)

	run := &store.Run{
		ID:          uuid.New().String(),
		Epochs:      10,
		BatchSize:   32,
		ValAccuracy: 0.91,
		ModelPath:   "/tmp/model.json",
	}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Runs []store.Run `json:"runs"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if len(body.Runs) != 1 || body.Runs[0].ID != run.ID {
			t.Errorf("runs = %+v, want one run %s", body.Runs, run.ID)
		}
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("missing run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
