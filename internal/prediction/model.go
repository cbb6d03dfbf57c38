package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Layer is one dense layer. Weights are indexed [input][output], the
// layout Keras uses for a Dense kernel.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// Model is a feed-forward network exported from the training pipeline as
// JSON. The last layer has a single output, the no-show probability.
type Model struct {
	Name   string  `json:"name"`
	Layers []Layer `json:"layers"`
}

func LoadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Layers) == 0 {
		return errors.New("model has no layers")
	}
	width := -1
	for i, l := range m.Layers {
		if len(l.Weights) == 0 {
			return fmt.Errorf("layer %d: empty weights", i)
		}
		if width != -1 && len(l.Weights) != width {
			return fmt.Errorf("layer %d: expects %d inputs, previous layer yields %d", i, len(l.Weights), width)
		}
		out := len(l.Bias)
		for j, row := range l.Weights {
			if len(row) != out {
				return fmt.Errorf("layer %d: weight row %d has %d columns, bias has %d", i, j, len(row), out)
			}
		}
		if _, err := activation(l.Activation); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		width = out
	}
	if width != 1 {
		return fmt.Errorf("final layer yields %d outputs, want 1", width)
	}
	return nil
}

// InputWidth is the vector length the first layer accepts.
func (m *Model) InputWidth() int {
	return len(m.Layers[0].Weights)
}

func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != m.InputWidth() {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", ErrInputShape, len(x), m.InputWidth())
	}
	for _, l := range m.Layers {
		act, _ := activation(l.Activation)
		next := make([]float64, len(l.Bias))
		copy(next, l.Bias)
		for i, xi := range x {
			if xi == 0 {
				continue
			}
			for j, w := range l.Weights[i] {
				next[j] += xi * w
			}
		}
		for j := range next {
			next[j] = act(next[j])
		}
		x = next
	}
	p := x[0]
	if math.IsNaN(p) {
		return 0, errors.New("model produced NaN")
	}
	return math.Min(1, math.Max(0, p)), nil
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", "linear":
		return func(v float64) float64 { return v }, nil
	case "relu":
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case "sigmoid":
		return func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }, nil
	case "tanh":
		return math.Tanh, nil
	default:
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
}
