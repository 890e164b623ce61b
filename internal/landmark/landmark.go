// Package landmark provides hand landmark types and the feature encoding
// used by both training and live classification.
package landmark

import "errors"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FeatureLen is the length of the encoded feature vector:
// one handedness flag followed by 21 (x, y, z) triples.
const FeatureLen = 1 + NumLandmarks*3

// ErrDegenerateBox is returned when all x or all y coordinates of a hand
// are identical, so bounding-box scaling is undefined.
var ErrDegenerateBox = errors.New("landmark: degenerate bounding box")

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Hand represents the 21 hand landmarks detected for a single hand.
type Hand struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// HandednessFlag maps the handedness label to the numeric flag used in
// feature vectors: 0 for left, 1 for right (and anything unrecognized).
func (h *Hand) HandednessFlag() float64 {
	if h.Handedness == "Left" {
		return 0
	}
	return 1
}

// FeatureVector encodes the hand into the fixed-length vector fed to the
// network. The x and y coordinates are independently rescaled to [0, 1]
// using this hand's own bounding box, which makes the encoding invariant
// to where the hand sits in the frame and how large it appears. The z
// coordinate is already relative in MediaPipe output and passes through
// unscaled.
//
// Returns ErrDegenerateBox when the x or y extent is zero.
func (h *Hand) FeatureVector() ([]float64, error) {
	minX, maxX := h.Points[0].X, h.Points[0].X
	minY, maxY := h.Points[0].Y, h.Points[0].Y

	for _, p := range h.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 || rangeY == 0 {
		return nil, ErrDegenerateBox
	}

	features := make([]float64, 0, FeatureLen)
	features = append(features, h.HandednessFlag())

	for _, p := range h.Points {
		features = append(features,
			(p.X-minX)/rangeX,
			(p.Y-minY)/rangeY,
			p.Z,
		)
	}

	return features, nil
}
