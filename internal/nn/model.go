package nn

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"
)

// modelFile is the JSON layout of a persisted model artifact.
type modelFile struct {
	Classes []string    `json:"classes"`
	Sizes   []int       `json:"sizes"`
	Weights [][]float64 `json:"weights"` // row-major, one entry per layer
	Biases  [][]float64 `json:"biases"`
}

// Save writes the trained weights to a JSON model artifact.
func (n *Network) Save(path string) error {
	file := modelFile{
		Classes: n.classes,
		Sizes:   n.Sizes(),
	}

	for _, layer := range n.layers {
		weights := make([]float64, 0, layer.in*layer.out)
		for r := 0; r < layer.in; r++ {
			weights = append(weights, layer.weights.RawRowView(r)...)
		}
		file.Weights = append(file.Weights, weights)

		bias := make([]float64, layer.out)
		copy(bias, layer.bias)
		file.Biases = append(file.Biases, bias)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("nn: encode model: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a model artifact written by Save. The returned network is
// ready for inference; Fit may be called to continue training it.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file modelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("nn: decode model %s: %w", path, err)
	}

	if len(file.Sizes) < 2 {
		return nil, fmt.Errorf("nn: model %s: need at least two layer sizes", path)
	}
	if len(file.Weights) != len(file.Sizes)-1 || len(file.Biases) != len(file.Sizes)-1 {
		return nil, fmt.Errorf("nn: model %s: layer count mismatch", path)
	}
	if file.Sizes[len(file.Sizes)-1] != len(file.Classes) {
		return nil, fmt.Errorf("nn: model %s: output width %d does not match %d classes",
			path, file.Sizes[len(file.Sizes)-1], len(file.Classes))
	}

	cfg := DefaultConfig()
	cfg.Hidden = file.Sizes[1 : len(file.Sizes)-1]

	n := &Network{
		config:  cfg,
		classes: file.Classes,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}

	for i := 0; i < len(file.Sizes)-1; i++ {
		in, out := file.Sizes[i], file.Sizes[i+1]
		if len(file.Weights[i]) != in*out || len(file.Biases[i]) != out {
			return nil, fmt.Errorf("nn: model %s: layer %d has wrong shape", path, i)
		}

		layer := newDenseLayer(in, out, n.rng)
		layer.weights = mat.NewDense(in, out, file.Weights[i])
		copy(layer.bias, file.Biases[i])
		n.layers = append(n.layers, layer)
	}

	return n, nil
}
