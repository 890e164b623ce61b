package detector

import (
	"math/rand"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/landmark"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []landmark.Hand
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []landmark.Hand) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]landmark.Hand, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// finger groups the four landmark indices of one finger from knuckle to tip.
type finger struct {
	mcp, pip, dip, tip int
	baseX              float64
}

var fingers = []finger{
	{landmark.IndexMCP, landmark.IndexPIP, landmark.IndexDIP, landmark.IndexTip, 0.55},
	{landmark.MiddleMCP, landmark.MiddlePIP, landmark.MiddleDIP, landmark.MiddleTip, 0.50},
	{landmark.RingMCP, landmark.RingPIP, landmark.RingDIP, landmark.RingTip, 0.45},
	{landmark.PinkyMCP, landmark.PinkyPIP, landmark.PinkyDIP, landmark.PinkyTip, 0.40},
}

// CountLandmarks returns a synthetic hand showing the given finger count
// (1-5). Counts one through four extend the fingers starting from the
// index; five adds the thumb. Used by tests and the e2e flow in place of
// real detector output.
func CountLandmarks(count int) landmark.Hand {
	hand := landmark.Hand{
		Handedness: "Right",
		Score:      0.95,
	}

	hand.Points[landmark.Wrist] = landmark.Point3D{X: 0.5, Y: 0.85, Z: 0}

	thumbExtended := count >= 5
	setThumb(&hand, thumbExtended)

	for i, f := range fingers {
		setFinger(&hand, f, i < count)
	}

	return hand
}

// FistLandmarks returns a synthetic closed fist, used as an "other" pose.
func FistLandmarks() landmark.Hand {
	hand := CountLandmarks(0)
	setThumb(&hand, false)
	return hand
}

func setThumb(hand *landmark.Hand, extended bool) {
	if extended {
		hand.Points[landmark.ThumbCMC] = landmark.Point3D{X: 0.57, Y: 0.80, Z: 0.02}
		hand.Points[landmark.ThumbMCP] = landmark.Point3D{X: 0.64, Y: 0.74, Z: 0.03}
		hand.Points[landmark.ThumbIP] = landmark.Point3D{X: 0.70, Y: 0.69, Z: 0.03}
		hand.Points[landmark.ThumbTip] = landmark.Point3D{X: 0.75, Y: 0.64, Z: 0.03}
		return
	}

	// Thumb tucked across the palm.
	hand.Points[landmark.ThumbCMC] = landmark.Point3D{X: 0.56, Y: 0.80, Z: 0.01}
	hand.Points[landmark.ThumbMCP] = landmark.Point3D{X: 0.57, Y: 0.76, Z: -0.01}
	hand.Points[landmark.ThumbIP] = landmark.Point3D{X: 0.54, Y: 0.74, Z: -0.03}
	hand.Points[landmark.ThumbTip] = landmark.Point3D{X: 0.51, Y: 0.73, Z: -0.04}
}

// SyntheticSamples builds a labeled dataset of jittered fixture hands,
// one batch per class with the fist standing in for "other". Useful for
// exercising the full train/predict path without recorded data.
func SyntheticSamples(perClass int, seed int64) []dataset.Sample {
	rng := rand.New(rand.NewSource(seed))

	poses := map[string]landmark.Hand{
		"one":   CountLandmarks(1),
		"two":   CountLandmarks(2),
		"three": CountLandmarks(3),
		"four":  CountLandmarks(4),
		"five":  CountLandmarks(5),
		"other": FistLandmarks(),
	}

	var samples []dataset.Sample
	for _, label := range dataset.Classes {
		pose := poses[label]
		for i := 0; i < perClass; i++ {
			s := dataset.Sample{Label: label, Handedness: 1}
			for j, p := range pose.Points {
				s.Points[j] = landmark.Point3D{
					X: p.X + rng.NormFloat64()*0.005,
					Y: p.Y + rng.NormFloat64()*0.005,
					Z: p.Z + rng.NormFloat64()*0.002,
				}
			}
			samples = append(samples, s)
		}
	}
	return samples
}

func setFinger(hand *landmark.Hand, f finger, extended bool) {
	if extended {
		hand.Points[f.mcp] = landmark.Point3D{X: f.baseX, Y: 0.70, Z: 0}
		hand.Points[f.pip] = landmark.Point3D{X: f.baseX + 0.01, Y: 0.56, Z: 0}
		hand.Points[f.dip] = landmark.Point3D{X: f.baseX + 0.02, Y: 0.45, Z: 0}
		hand.Points[f.tip] = landmark.Point3D{X: f.baseX + 0.02, Y: 0.35, Z: 0}
		return
	}

	// Curled: tip folded back toward the palm.
	hand.Points[f.mcp] = landmark.Point3D{X: f.baseX, Y: 0.70, Z: -0.02}
	hand.Points[f.pip] = landmark.Point3D{X: f.baseX, Y: 0.67, Z: -0.05}
	hand.Points[f.dip] = landmark.Point3D{X: f.baseX - 0.02, Y: 0.70, Z: -0.04}
	hand.Points[f.tip] = landmark.Point3D{X: f.baseX - 0.03, Y: 0.73, Z: -0.02}
}
