package classify

import (
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/nn"
)

// trainedClassifier fits a small network on jittered fixture hands so
// labelFor decisions can be checked against known poses.
func trainedClassifier(t *testing.T, config Config) *Classifier {
	t.Helper()

	ds, err := dataset.Build(detector.SyntheticSamples(25, 4))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cfg := nn.DefaultConfig()
	cfg.Epochs = 20
	cfg.Seed = 4
	net := nn.New(dataset.Classes, cfg)

	history, err := net.Fit(ds)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if acc := history.Summary().TrainAccuracy; acc < 0.9 {
		t.Fatalf("fixture training accuracy = %f, want >= 0.9", acc)
	}

	return New(config, nil, detector.NewMockDetector(), net)
}

func TestClassifier_LabelFor(t *testing.T) {
	c := trainedClassifier(t, DefaultConfig())

	for count, want := range map[int]string{
		1: "one", 2: "two", 3: "three", 4: "four", 5: "five",
	} {
		hand := detector.CountLandmarks(count)

		text, ok := c.labelFor(&hand)
		if !ok {
			t.Errorf("count %d: no label overlaid", count)
			continue
		}
		if !strings.HasPrefix(text, want) {
			t.Errorf("count %d: overlay = %q, want prefix %q", count, text, want)
		}
	}
}

func TestClassifier_LabelFor_SuppressesOther(t *testing.T) {
	c := trainedClassifier(t, DefaultConfig())

	fist := detector.FistLandmarks()
	if text, ok := c.labelFor(&fist); ok {
		t.Errorf("fist overlaid as %q, want suppressed", text)
	}
}

func TestClassifier_LabelFor_LowScore(t *testing.T) {
	c := trainedClassifier(t, DefaultConfig())

	hand := detector.CountLandmarks(2)
	hand.Score = 0.1

	if text, ok := c.labelFor(&hand); ok {
		t.Errorf("low-score hand overlaid as %q, want skipped", text)
	}
}

func TestClassifier_LabelFor_DegenerateHand(t *testing.T) {
	c := trainedClassifier(t, DefaultConfig())

	var hand landmark.Hand
	hand.Score = 0.9
	for i := range hand.Points {
		hand.Points[i] = landmark.Point3D{X: 0.5, Y: 0.5}
	}

	if text, ok := c.labelFor(&hand); ok {
		t.Errorf("degenerate hand overlaid as %q, want skipped", text)
	}
}

func TestClassifier_LabelFor_ConfidenceThreshold(t *testing.T) {
	config := DefaultConfig()
	config.MinConfidence = 1.01 // impossible to reach
	c := trainedClassifier(t, config)

	hand := detector.CountLandmarks(3)
	if text, ok := c.labelFor(&hand); ok {
		t.Errorf("overlaid %q despite impossible confidence threshold", text)
	}
}
