// Package dataset loads labeled hand-landmark samples and prepares them
// for training: feature encoding, one-hot labels and a shuffled
// train/validation split.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/ayusman/mudra/internal/landmark"
)

// Classes are the finger-count labels the classifier distinguishes,
// in output-index order. The trailing "other" class collects everything
// that is not a clean one-to-five count.
var Classes = []string{"one", "two", "three", "four", "five", "other"}

// OtherClass is the label suppressed in live overlays.
const OtherClass = "other"

// ErrUnknownLabel is returned for samples whose label is not in Classes.
var ErrUnknownLabel = errors.New("dataset: unknown class label")

// Sample is a single labeled hand observation.
type Sample struct {
	Label      string
	Handedness int // 0 = left, 1 = right
	Points     [landmark.NumLandmarks]landmark.Point3D
}

// Hand converts the sample to a landmark.Hand for feature encoding.
func (s *Sample) Hand() landmark.Hand {
	h := landmark.Hand{Points: s.Points, Handedness: "Right"}
	if s.Handedness == 0 {
		h.Handedness = "Left"
	}
	return h
}

// ClassIndex returns the output index for a class label.
func ClassIndex(label string) (int, error) {
	for i, c := range Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}

// OneHot encodes a class index as a one-hot vector over n classes.
func OneHot(index, n int) []float64 {
	v := make([]float64, n)
	if index >= 0 && index < n {
		v[index] = 1
	}
	return v
}

// ArgMax returns the index of the largest value. It is the inverse of
// OneHot for well-formed label vectors.
func ArgMax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}

// Dataset holds encoded features and class indices ready for training.
type Dataset struct {
	Features [][]float64
	Labels   []int // class indices into Classes
	Skipped  int   // samples dropped during encoding
}

// Build encodes samples into a Dataset. Samples with a degenerate
// bounding box or an unknown label are counted in Skipped rather than
// failing the whole set.
func Build(samples []Sample) (*Dataset, error) {
	ds := &Dataset{}
	for i := range samples {
		idx, err := ClassIndex(samples[i].Label)
		if err != nil {
			ds.Skipped++
			continue
		}

		hand := samples[i].Hand()
		features, err := hand.FeatureVector()
		if err != nil {
			if errors.Is(err, landmark.ErrDegenerateBox) {
				ds.Skipped++
				continue
			}
			return nil, err
		}

		ds.Features = append(ds.Features, features)
		ds.Labels = append(ds.Labels, idx)
	}

	if len(ds.Features) == 0 {
		return nil, errors.New("dataset: no usable samples")
	}
	return ds, nil
}

// Len returns the number of encoded samples.
func (d *Dataset) Len() int {
	return len(d.Features)
}

// ClassCounts returns the number of samples per class index.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, len(Classes))
	for _, l := range d.Labels {
		if l >= 0 && l < len(counts) {
			counts[l]++
		}
	}
	return counts
}

// Split shuffles the dataset with the given seed and holds out valFrac
// of it for validation. valFrac is clamped so both splits are non-empty
// when the dataset has at least two samples.
func (d *Dataset) Split(valFrac float64, seed int64) (train, val *Dataset) {
	n := d.Len()
	order := rand.New(rand.NewSource(seed)).Perm(n)

	nVal := int(float64(n) * valFrac)
	if nVal >= n {
		nVal = n - 1
	}
	if nVal < 0 {
		nVal = 0
	}

	train = &Dataset{}
	val = &Dataset{}
	for i, idx := range order {
		if i < nVal {
			val.Features = append(val.Features, d.Features[idx])
			val.Labels = append(val.Labels, d.Labels[idx])
		} else {
			train.Features = append(train.Features, d.Features[idx])
			train.Labels = append(train.Labels, d.Labels[idx])
		}
	}
	return train, val
}
