package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/nn"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

// TestE2E_CompleteWorkflow exercises the full pipeline: samples into the
// store, a training run, a saved and reloaded model, and the HTTP API
// reporting what happened.
func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	samples := detector.SyntheticSamples(30, 11)

	t.Run("StoreSamples", func(t *testing.T) {
		if err := s.Samples().Create(samples, "synthetic"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		counts, err := s.Samples().CountByClass()
		if err != nil {
			t.Fatalf("CountByClass() error = %v", err)
		}
		for _, class := range dataset.Classes {
			if counts[class] != 30 {
				t.Errorf("counts[%s] = %d, want 30", class, counts[class])
			}
		}
	})

	var net *nn.Network
	modelPath := filepath.Join(tmpDir, "model.json")

	t.Run("Train", func(t *testing.T) {
		stored, err := s.Samples().ListDataset()
		if err != nil {
			t.Fatalf("ListDataset() error = %v", err)
		}
		ds, err := dataset.Build(stored)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if ds.Skipped != 0 {
			t.Errorf("Skipped = %d, want 0", ds.Skipped)
		}

		cfg := nn.DefaultConfig()
		cfg.Epochs = 25
		cfg.Seed = 11

		net = nn.New(dataset.Classes, cfg)
		history, err := net.Fit(ds)
		if err != nil {
			t.Fatalf("Fit() error = %v", err)
		}

		summary := history.Summary()
		if summary.TrainAccuracy < 0.9 {
			t.Errorf("TrainAccuracy = %.3f, want >= 0.9", summary.TrainAccuracy)
		}

		if err := net.Save(modelPath); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		run := &store.Run{
			ID:            uuid.New().String(),
			Epochs:        summary.Epochs,
			BatchSize:     cfg.BatchSize,
			TrainLoss:     summary.TrainLoss,
			TrainAccuracy: summary.TrainAccuracy,
			ValLoss:       summary.ValLoss,
			ValAccuracy:   summary.ValAccuracy,
			ModelPath:     modelPath,
		}
		if err := s.Runs().Create(run); err != nil {
			t.Fatalf("Runs().Create() error = %v", err)
		}
		if err := s.Settings().Set(store.SettingLastModel, modelPath); err != nil {
			t.Fatalf("Settings().Set() error = %v", err)
		}
	})

	t.Run("ReloadAndClassify", func(t *testing.T) {
		loaded, err := nn.Load(modelPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		for count := 1; count <= 5; count++ {
			hand := detector.CountLandmarks(count)
			features, err := hand.FeatureVector()
			if err != nil {
				t.Fatalf("FeatureVector() error = %v", err)
			}

			label, confidence, err := loaded.Classify(features)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if label != dataset.Classes[count-1] {
				t.Errorf("count %d classified as %s (%.2f), want %s",
					count, label, confidence, dataset.Classes[count-1])
			}
		}
	})

	t.Run("API", func(t *testing.T) {
		srv := server.New(server.Config{Store: s, Net: net})
		ts := httptest.NewServer(srv)
		defer ts.Close()

		client := ts.Client()

		resp, err := client.Get(ts.URL + "/api/samples")
		if err != nil {
			t.Fatalf("GET /api/samples error = %v", err)
		}
		defer resp.Body.Close()

		var counts struct {
			Total int `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
			t.Fatalf("decode counts: %v", err)
		}
		if want := 30 * len(dataset.Classes); counts.Total != want {
			t.Errorf("total = %d, want %d", counts.Total, want)
		}

		resp, err = client.Get(ts.URL + "/api/runs")
		if err != nil {
			t.Fatalf("GET /api/runs error = %v", err)
		}
		defer resp.Body.Close()

		var runs struct {
			Runs []store.Run `json:"runs"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
			t.Fatalf("decode runs: %v", err)
		}
		if len(runs.Runs) != 1 {
			t.Fatalf("runs = %d, want 1", len(runs.Runs))
		}
		if runs.Runs[0].ModelPath != modelPath {
			t.Errorf("ModelPath = %s, want %s", runs.Runs[0].ModelPath, modelPath)
		}
	})
}
