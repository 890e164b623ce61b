// Package nn implements the dense feed-forward network used to classify
// finger-count gestures from encoded hand landmarks.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/landmark"
)

// Config holds the network topology and training hyperparameters.
type Config struct {
	Hidden    []int   // hidden layer widths
	Dropout   float64 // drop probability after each hidden layer
	LearnRate float64
	Beta1     float64 // Adam first-moment decay
	Beta2     float64 // Adam second-moment decay
	Epsilon   float64 // Adam denominator fudge
	Epochs    int
	BatchSize int
	ValSplit  float64 // fraction of samples held out for validation
	Seed      int64
}

// DefaultConfig returns the fixed topology and training setup:
// 64 -> 256 -> 128 -> 32 -> 6 with ReLU activations and dropout after
// each hidden layer, trained with Adam on categorical cross-entropy.
func DefaultConfig() Config {
	return Config{
		Hidden:    []int{256, 128, 32},
		Dropout:   0.2,
		LearnRate: 0.001,
		Beta1:     0.9,
		Beta2:     0.999,
		Epsilon:   1e-8,
		Epochs:    100,
		BatchSize: 32,
		ValSplit:  0.2,
		Seed:      1,
	}
}

// Network is a dense feed-forward classifier with a softmax output.
type Network struct {
	config  Config
	classes []string
	layers  []*denseLayer
	rng     *rand.Rand
}

// denseLayer is one fully-connected layer with its Adam state.
type denseLayer struct {
	in, out int
	weights *mat.Dense // in x out
	bias    []float64

	// Adam moment estimates.
	mW, vW *mat.Dense
	mB, vB []float64

	// Per-batch caches for backpropagation.
	input      *mat.Dense // batch x in
	activation *mat.Dense // batch x out, post-activation
	mask       *mat.Dense // dropout mask, nil outside training
}

// New creates an untrained network for the given class labels.
// Weights use He initialization seeded from cfg.Seed.
func New(classes []string, cfg Config) *Network {
	n := &Network{
		config:  cfg,
		classes: classes,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := append([]int{landmark.FeatureLen}, cfg.Hidden...)
	sizes = append(sizes, len(classes))

	for i := 0; i < len(sizes)-1; i++ {
		n.layers = append(n.layers, newDenseLayer(sizes[i], sizes[i+1], n.rng))
	}
	return n
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	weights := mat.NewDense(in, out, nil)
	std := math.Sqrt(2.0 / float64(in))
	for r := 0; r < in; r++ {
		for c := 0; c < out; c++ {
			weights.Set(r, c, rng.NormFloat64()*std)
		}
	}

	return &denseLayer{
		in:      in,
		out:     out,
		weights: weights,
		bias:    make([]float64, out),
		mW:      mat.NewDense(in, out, nil),
		vW:      mat.NewDense(in, out, nil),
		mB:      make([]float64, out),
		vB:      make([]float64, out),
	}
}

// Classes returns the output labels in index order.
func (n *Network) Classes() []string {
	return n.classes
}

// Sizes returns the layer widths including input and output.
func (n *Network) Sizes() []int {
	sizes := []int{n.layers[0].in}
	for _, l := range n.layers {
		sizes = append(sizes, l.out)
	}
	return sizes
}

// forward runs a batch through the network. When training is true,
// hidden activations are dropped with probability cfg.Dropout and the
// survivors rescaled (inverted dropout), and layer caches are kept for
// the backward pass.
func (n *Network) forward(batch *mat.Dense, training bool) *mat.Dense {
	current := batch
	last := len(n.layers) - 1

	for i, layer := range n.layers {
		rows, _ := current.Dims()
		z := mat.NewDense(rows, layer.out, nil)
		z.Mul(current, layer.weights)
		for r := 0; r < rows; r++ {
			for c := 0; c < layer.out; c++ {
				z.Set(r, c, z.At(r, c)+layer.bias[c])
			}
		}

		layer.mask = nil
		if i < last {
			// ReLU
			z.Apply(func(_, _ int, v float64) float64 {
				return math.Max(0, v)
			}, z)

			if training && n.config.Dropout > 0 {
				keep := 1 - n.config.Dropout
				mask := mat.NewDense(rows, layer.out, nil)
				for r := 0; r < rows; r++ {
					for c := 0; c < layer.out; c++ {
						if n.rng.Float64() < keep {
							mask.Set(r, c, 1/keep)
						}
					}
				}
				z.MulElem(z, mask)
				layer.mask = mask
			}
		} else {
			softmaxRows(z)
		}

		if training {
			layer.input = current
			layer.activation = z
		}
		current = z
	}

	return current
}

// backward propagates the softmax cross-entropy gradient through the
// network and applies one Adam step per layer. delta is (probs - onehot)
// already divided by the batch size.
func (n *Network) backward(delta *mat.Dense, step int) {
	for i := len(n.layers) - 1; i >= 0; i-- {
		layer := n.layers[i]

		gradW := mat.NewDense(layer.in, layer.out, nil)
		gradW.Mul(layer.input.T(), delta)

		rows, _ := delta.Dims()
		gradB := make([]float64, layer.out)
		for r := 0; r < rows; r++ {
			for c := 0; c < layer.out; c++ {
				gradB[c] += delta.At(r, c)
			}
		}

		if i > 0 {
			prev := n.layers[i-1]
			next := mat.NewDense(rows, layer.in, nil)
			next.Mul(delta, layer.weights.T())

			// Gradient passes only where ReLU was active, attenuated by
			// the same dropout mask used in the forward pass.
			next.Apply(func(r, c int, v float64) float64 {
				if prev.activation.At(r, c) <= 0 {
					return 0
				}
				return v
			}, next)
			if prev.mask != nil {
				next.MulElem(next, prev.mask)
			}
			delta = next
		}

		layer.adamStep(gradW, gradB, n.config, step)
	}
}

func (l *denseLayer) adamStep(gradW *mat.Dense, gradB []float64, cfg Config, step int) {
	t := float64(step)
	corr1 := 1 - math.Pow(cfg.Beta1, t)
	corr2 := 1 - math.Pow(cfg.Beta2, t)

	for r := 0; r < l.in; r++ {
		for c := 0; c < l.out; c++ {
			g := gradW.At(r, c)
			m := cfg.Beta1*l.mW.At(r, c) + (1-cfg.Beta1)*g
			v := cfg.Beta2*l.vW.At(r, c) + (1-cfg.Beta2)*g*g
			l.mW.Set(r, c, m)
			l.vW.Set(r, c, v)

			update := cfg.LearnRate * (m / corr1) / (math.Sqrt(v/corr2) + cfg.Epsilon)
			l.weights.Set(r, c, l.weights.At(r, c)-update)
		}
	}

	for c := 0; c < l.out; c++ {
		g := gradB[c]
		l.mB[c] = cfg.Beta1*l.mB[c] + (1-cfg.Beta1)*g
		l.vB[c] = cfg.Beta2*l.vB[c] + (1-cfg.Beta2)*g*g

		update := cfg.LearnRate * (l.mB[c] / corr1) / (math.Sqrt(l.vB[c]/corr2) + cfg.Epsilon)
		l.bias[c] -= update
	}
}

// softmaxRows applies a numerically stable softmax to each row in place.
func softmaxRows(m *mat.Dense) {
	rows, cols := m.Dims()
	for r := 0; r < rows; r++ {
		max := m.At(r, 0)
		for c := 1; c < cols; c++ {
			if m.At(r, c) > max {
				max = m.At(r, c)
			}
		}

		sum := 0.0
		for c := 0; c < cols; c++ {
			e := math.Exp(m.At(r, c) - max)
			m.Set(r, c, e)
			sum += e
		}
		for c := 0; c < cols; c++ {
			m.Set(r, c, m.At(r, c)/sum)
		}
	}
}

// Predict runs a forward pass for a single feature vector and returns
// the class probability distribution.
func (n *Network) Predict(features []float64) ([]float64, error) {
	if len(features) != n.layers[0].in {
		return nil, fmt.Errorf("nn: feature length %d, want %d", len(features), n.layers[0].in)
	}

	batch := mat.NewDense(1, len(features), features)
	out := n.forward(batch, false)

	probs := make([]float64, len(n.classes))
	for c := range probs {
		probs[c] = out.At(0, c)
	}
	return probs, nil
}

// Classify returns the most probable class label and its probability.
func (n *Network) Classify(features []float64) (string, float64, error) {
	probs, err := n.Predict(features)
	if err != nil {
		return "", 0, err
	}

	best := dataset.ArgMax(probs)
	return n.classes[best], probs[best], nil
}

// batchOf assembles the rows at the given indices into matrices of
// features and one-hot labels.
func batchOf(ds *dataset.Dataset, indices []int, classes int) (*mat.Dense, *mat.Dense) {
	features := mat.NewDense(len(indices), landmark.FeatureLen, nil)
	labels := mat.NewDense(len(indices), classes, nil)

	for i, idx := range indices {
		features.SetRow(i, ds.Features[idx])
		labels.SetRow(i, dataset.OneHot(ds.Labels[idx], classes))
	}
	return features, labels
}

// Evaluate computes cross-entropy loss and accuracy over a dataset
// without updating the network.
func (n *Network) Evaluate(ds *dataset.Dataset) (loss, accuracy float64, err error) {
	if ds.Len() == 0 {
		return 0, 0, errors.New("nn: empty dataset")
	}

	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}

	features, _ := batchOf(ds, indices, len(n.classes))
	probs := n.forward(features, false)

	correct := 0
	for i, label := range ds.Labels {
		p := probs.At(i, label)
		loss -= math.Log(math.Max(p, 1e-12))

		row := mat.Row(nil, i, probs)
		if dataset.ArgMax(row) == label {
			correct++
		}
	}

	loss /= float64(ds.Len())
	accuracy = float64(correct) / float64(ds.Len())
	return loss, accuracy, nil
}

// Fit trains the network on the dataset for the configured number of
// epochs, holding out cfg.ValSplit of the samples for validation.
// There is no early stopping or checkpointing: the caller gets the full
// loss/accuracy history for both splits.
func (n *Network) Fit(ds *dataset.Dataset) (*History, error) {
	if ds.Len() < 2 {
		return nil, errors.New("nn: need at least two samples to fit")
	}

	train, val := ds.Split(n.config.ValSplit, n.config.Seed)

	batchSize := n.config.BatchSize
	if batchSize <= 0 || batchSize > train.Len() {
		batchSize = train.Len()
	}

	history := &History{}
	step := 0
	var err error

	for epoch := 0; epoch < n.config.Epochs; epoch++ {
		order := n.rng.Perm(train.Len())

		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			indices := order[start:end]

			features, labels := batchOf(train, indices, len(n.classes))
			probs := n.forward(features, true)

			// Softmax + cross-entropy gradient, averaged over the batch.
			rows, cols := probs.Dims()
			delta := mat.NewDense(rows, cols, nil)
			delta.Sub(probs, labels)
			delta.Scale(1/float64(rows), delta)

			step++
			n.backward(delta, step)
		}

		stats := EpochStats{Epoch: epoch + 1}
		if stats.TrainLoss, stats.TrainAccuracy, err = n.Evaluate(train); err != nil {
			return nil, err
		}
		if val.Len() > 0 {
			if stats.ValLoss, stats.ValAccuracy, err = n.Evaluate(val); err != nil {
				return nil, err
			}
		}
		history.Epochs = append(history.Epochs, stats)
	}

	return history, nil
}
