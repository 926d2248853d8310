package match

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Fallback is a precomputed logistic model used as a secondary opinion when
// nearest-profile search rejects a capture. It is loaded once at startup and
// strictly advisory: any failure to load or evaluate it is logged and
// swallowed, never surfaced to the kiosk.
type Fallback struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// LoadFallback reads a logistic model from a JSON file.
func LoadFallback(path string) (*Fallback, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback model: %w", err)
	}
	fb := &Fallback{}
	if err := json.Unmarshal(data, fb); err != nil {
		return nil, fmt.Errorf("parse fallback model: %w", err)
	}
	if len(fb.Weights) == 0 {
		return nil, fmt.Errorf("fallback model has no weights")
	}
	if fb.Threshold == 0 {
		fb.Threshold = 0.5
	}
	return fb, nil
}

// Score returns the sigmoid activation for the given vector. The dot product
// runs over the shared prefix of weights and input, matching the distance
// engine's degradation policy for mismatched lengths.
func (f *Fallback) Score(v []float64) (float64, error) {
	if len(v) == 0 {
		return 0, fmt.Errorf("empty input vector")
	}
	n := len(f.Weights)
	if len(v) < n {
		n = len(v)
	}
	z := f.Bias
	for i := 0; i < n; i++ {
		z += f.Weights[i] * v[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
