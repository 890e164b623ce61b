// Package classify runs the trained network against a live camera feed
// and overlays the predicted finger count on each frame.
package classify

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/nn"
)

// escKey is the keycode that terminates the live loop.
const escKey = 27

// maxReadFailures is how many consecutive camera read errors are
// tolerated before the loop gives up.
const maxReadFailures = 10

// idleTimeout is how long after the last motion hand detection keeps
// running before the loop falls back to render-only mode.
const idleTimeout = 2 * time.Second

// Config holds the live classification settings that the original
// notebooks kept as inline constants.
type Config struct {
	CameraID        int
	MinScore        float64 // minimum detector score to trust a hand
	MinConfidence   float64 // minimum class probability to overlay
	Suppress        string  // class label never overlaid
	MotionThreshold float64 // percent changed pixels that counts as motion
	WindowTitle     string
}

// DefaultConfig returns the default live classification settings.
func DefaultConfig() Config {
	return Config{
		CameraID:        0,
		MinScore:        0.5,
		MinConfidence:   0.6,
		Suppress:        dataset.OtherClass,
		MotionThreshold: 1.0,
		WindowTitle:     "Mudra",
	}
}

// Classifier wires the camera, hand detector and trained network into
// the synchronous capture-detect-predict-render loop.
type Classifier struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	net      *nn.Network
}

// New creates a live classifier from its collaborators.
func New(config Config, camera capture.Camera, det detector.Detector, net *nn.Network) *Classifier {
	return &Classifier{
		config:   config,
		camera:   camera,
		detector: det,
		net:      net,
	}
}

// labelFor classifies a single detected hand. The second return is
// false when nothing should be overlaid: low detector score, degenerate
// landmarks, the suppressed class, or low confidence.
func (c *Classifier) labelFor(hand *landmark.Hand) (string, bool) {
	if hand.Score < c.config.MinScore {
		return "", false
	}

	features, err := hand.FeatureVector()
	if err != nil {
		if !errors.Is(err, landmark.ErrDegenerateBox) {
			logrus.Warnf("classify: encode hand: %v", err)
		}
		return "", false
	}

	label, confidence, err := c.net.Classify(features)
	if err != nil {
		logrus.Warnf("classify: predict: %v", err)
		return "", false
	}

	if label == c.config.Suppress || confidence < c.config.MinConfidence {
		return "", false
	}

	return fmt.Sprintf("%s (%.0f%%)", label, confidence*100), true
}

// Run executes the blocking live loop until Esc is pressed or the
// camera fails repeatedly. Camera, window and detector resources are
// released on every exit path.
func (c *Classifier) Run() error {
	if err := c.camera.Open(); err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.CameraID, err)
	}
	defer c.camera.Close()

	window := gocv.NewWindow(c.config.WindowTitle)
	defer window.Close()

	motion := capture.NewMotionDetector(c.config.MotionThreshold)
	defer motion.Close()

	logrus.Infof("live classification started (camera %d), press Esc to quit", c.config.CameraID)

	failures := 0
	lastMotion := time.Now()

	for {
		frame, err := c.camera.ReadFrame()
		if err != nil {
			failures++
			if failures >= maxReadFailures {
				return fmt.Errorf("camera read failed %d times: %w", failures, err)
			}
			logrus.Warnf("classify: read frame: %v", err)
			continue
		}
		failures = 0

		if moved, _ := motion.Detect(frame); moved {
			lastMotion = time.Now()
		}

		// Hand detection is skipped while the scene has been still,
		// which keeps the idle loop cheap.
		if time.Since(lastMotion) <= idleTimeout {
			c.annotate(frame)
		}

		window.IMShow(*frame)
		frame.Close()

		if window.WaitKey(1) == escKey {
			logrus.Info("live classification stopped")
			return nil
		}
	}
}

// annotate detects hands in the frame and draws the predicted label.
func (c *Classifier) annotate(frame *gocv.Mat) {
	hands, err := c.detector.Detect(frame)
	if err != nil {
		logrus.Warnf("classify: detect hands: %v", err)
		return
	}

	green := color.RGBA{G: 255}
	for i := range hands {
		text, ok := c.labelFor(&hands[i])
		if !ok {
			continue
		}

		gocv.PutText(frame, text, image.Point{X: 20, Y: 50 + 40*i},
			gocv.FontHersheySimplex, 1.2, green, 3)
	}
}
