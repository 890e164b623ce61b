package nn

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/landmark"
)

const epsilon = 1e-9

// syntheticDataset builds a cleanly separable dataset: each class gets a
// distinct base vector and samples are small perturbations of it.
func syntheticDataset(perClass int, seed int64) *dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))

	bases := make([][]float64, len(dataset.Classes))
	for c := range bases {
		base := make([]float64, landmark.FeatureLen)
		for i := range base {
			base[i] = rng.Float64()
		}
		bases[c] = base
	}

	ds := &dataset.Dataset{}
	for c := range bases {
		for s := 0; s < perClass; s++ {
			features := make([]float64, landmark.FeatureLen)
			for i := range features {
				features[i] = bases[c][i] + rng.NormFloat64()*0.02
			}
			ds.Features = append(ds.Features, features)
			ds.Labels = append(ds.Labels, c)
		}
	}
	return ds
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Epochs = 15
	cfg.BatchSize = 16
	cfg.Seed = 7
	return cfg
}

func TestNetwork_Sizes(t *testing.T) {
	n := New(dataset.Classes, DefaultConfig())

	want := []int{64, 256, 128, 32, 6}
	got := n.Sizes()
	if len(got) != len(want) {
		t.Fatalf("sizes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sizes = %v, want %v", got, want)
			break
		}
	}
}

func TestNetwork_Predict_IsDistribution(t *testing.T) {
	n := New(dataset.Classes, DefaultConfig())

	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 10; trial++ {
		features := make([]float64, landmark.FeatureLen)
		for i := range features {
			features[i] = rng.Float64()*2 - 1
		}

		probs, err := n.Predict(features)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}

		if len(probs) != len(dataset.Classes) {
			t.Fatalf("got %d probabilities, want %d", len(probs), len(dataset.Classes))
		}

		sum := 0.0
		for _, p := range probs {
			if p < 0 || p > 1 {
				t.Errorf("probability out of range: %f", p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("probabilities sum to %f, want 1", sum)
		}
	}
}

func TestNetwork_Predict_WrongLength(t *testing.T) {
	n := New(dataset.Classes, DefaultConfig())

	if _, err := n.Predict(make([]float64, 10)); err == nil {
		t.Error("expected error for wrong feature length")
	}
}

func TestNetwork_Fit_LearnsSeparableData(t *testing.T) {
	ds := syntheticDataset(30, 11)
	n := New(dataset.Classes, testConfig())

	history, err := n.Fit(ds)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if len(history.Epochs) != 15 {
		t.Fatalf("got %d epochs, want 15", len(history.Epochs))
	}

	first := history.Epochs[0]
	last := history.Epochs[len(history.Epochs)-1]

	if last.TrainLoss >= first.TrainLoss {
		t.Errorf("train loss did not decrease: first=%f last=%f", first.TrainLoss, last.TrainLoss)
	}
	if last.TrainAccuracy < 0.8 {
		t.Errorf("train accuracy = %f, want >= 0.8 on separable data", last.TrainAccuracy)
	}
	if last.ValAccuracy < 0.7 {
		t.Errorf("validation accuracy = %f, want >= 0.7 on separable data", last.ValAccuracy)
	}
}

func TestNetwork_Fit_TooFewSamples(t *testing.T) {
	n := New(dataset.Classes, testConfig())

	_, err := n.Fit(&dataset.Dataset{
		Features: [][]float64{make([]float64, landmark.FeatureLen)},
		Labels:   []int{0},
	})
	if err == nil {
		t.Error("expected error for single-sample dataset")
	}
}

func TestNetwork_SaveLoad_RoundTrip(t *testing.T) {
	ds := syntheticDataset(10, 5)
	n := New(dataset.Classes, testConfig())
	if _, err := n.Fit(ds); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := n.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded.Classes()) != len(dataset.Classes) {
		t.Fatalf("loaded %d classes, want %d", len(loaded.Classes()), len(dataset.Classes))
	}

	// Predictions must be identical after the round trip.
	for i := 0; i < 5; i++ {
		want, err := n.Predict(ds.Features[i])
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		got, err := loaded.Predict(ds.Features[i])
		if err != nil {
			t.Fatalf("loaded Predict() error = %v", err)
		}

		for c := range want {
			if math.Abs(want[c]-got[c]) > epsilon {
				t.Fatalf("sample %d class %d: prob = %f, want %f", i, c, got[c], want[c])
			}
		}
	}
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		writeFile(t, path, "{not json")
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		writeFile(t, path, `{"classes":["a","b"],"sizes":[4,2],"weights":[[1,2,3]],"biases":[[0,0]]}`)
		if _, err := Load(path); err == nil {
			t.Error("expected error for shape mismatch")
		}
	})
}

func TestNetwork_Classify(t *testing.T) {
	ds := syntheticDataset(20, 9)
	n := New(dataset.Classes, testConfig())
	if _, err := n.Fit(ds); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	label, confidence, err := n.Classify(ds.Features[0])
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if _, err := dataset.ClassIndex(label); err != nil {
		t.Errorf("Classify() returned unknown label %q", label)
	}
	if confidence <= 0 || confidence > 1 {
		t.Errorf("confidence = %f, want (0, 1]", confidence)
	}
}

func TestHistory_Summary(t *testing.T) {
	h := &History{Epochs: []EpochStats{
		{Epoch: 1, TrainLoss: 1.5, TrainAccuracy: 0.4, ValLoss: 1.6, ValAccuracy: 0.3},
		{Epoch: 2, TrainLoss: 0.5, TrainAccuracy: 0.9, ValLoss: 0.7, ValAccuracy: 0.8},
	}}

	s := h.Summary()
	if s.Epochs != 2 {
		t.Errorf("epochs = %d, want 2", s.Epochs)
	}
	if s.ValAccuracy != 0.8 || s.BestValAcc != 0.8 {
		t.Errorf("val accuracy = %f best = %f, want 0.8", s.ValAccuracy, s.BestValAcc)
	}
	if math.Abs(s.MeanTrainLoss-1.0) > epsilon {
		t.Errorf("mean train loss = %f, want 1.0", s.MeanTrainLoss)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
