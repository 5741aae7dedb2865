// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"errors"
	"fmt"
	"math"
	"os"

	"go.yaml.in/yaml/v3"
)

// LinearModel is a bag-of-words logistic classifier:
//
//	score = sigmoid(bias + sum of weights[token] over every token occurrence)
//
// Tokens are the unigrams and bigrams produced by Tokens.
type LinearModel struct {
	Bias    float64            `yaml:"bias"`
	Weights map[string]float64 `yaml:"weights"`

	// Threshold is the acceptance threshold the model was trained for, if any.
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// LoadModel reads and validates a LinearModel from a YAML file.
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading relevance model: %w", err)
	}
	var m LinearModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing relevance model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("relevance model %s: %w", path, err)
	}
	return &m, nil
}

// Validate rejects models that could only produce meaningless scores.
func (m *LinearModel) Validate() error {
	if len(m.Weights) == 0 {
		return errors.New("model has no weights")
	}
	if !finite(m.Bias) {
		return fmt.Errorf("bias %v is not finite", m.Bias)
	}
	for tok, w := range m.Weights {
		if !finite(w) {
			return fmt.Errorf("weight for %q is not finite", tok)
		}
	}
	if m.Threshold != nil && (*m.Threshold < 0 || *m.Threshold > 1) {
		return fmt.Errorf("threshold %v outside [0, 1]", *m.Threshold)
	}
	return nil
}

// Score implements Scorer. Empty text scores sigmoid(bias).
func (m *LinearModel) Score(text string) (float64, error) {
	if m == nil || m.Weights == nil {
		return 0, errors.New("relevance model is not loaded")
	}
	z := m.Bias
	for _, tok := range Tokens(text) {
		z += m.Weights[tok]
	}
	if !finite(z) {
		return 0, fmt.Errorf("model logit %v is not finite", z)
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// ResolveThreshold picks the acceptance threshold: an explicit configured
// value wins, including zero, then the model's own, then DefaultThreshold.
func ResolveThreshold(configured *float64, m *LinearModel) float64 {
	switch {
	case configured != nil:
		return *configured
	case m != nil && m.Threshold != nil:
		return *m.Threshold
	default:
		return DefaultThreshold
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
