// Package relevance scores offer text with a trained linear classifier.
package relevance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"unicode"
)

// Scorer maps offer text to a relevance probability in [0,1].
type Scorer interface {
	Score(text string) float64
}

const modelVersion = 1

// Model is a bag-of-words logistic regression exported by the training job.
type Model struct {
	Version   int                `json:"version"`
	Bias      float64            `json:"bias"`
	Threshold float64            `json:"threshold,omitempty"`
	Weights   map[string]float64 `json:"weights"`
}

// Load reads the model artifact. A missing file returns (nil, nil): the
// soft filter is simply off.
func Load(path string) (*Model, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("unsupported model version %d", m.Version)
	}
	if len(m.Weights) == 0 {
		return nil, errors.New("model has no weights")
	}
	return &m, nil
}

// Score is sigmoid(bias + sum of weights of the distinct tokens in text).
func (m *Model) Score(text string) float64 {
	z := m.Bias
	seen := map[string]struct{}{}
	for _, tok := range Tokenize(text) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		z += m.Weights[tok]
	}
	return 1 / (1 + math.Exp(-z))
}

// Tokenize lowercases text and splits it into runs of letters and digits
// of length two or more.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

var _ Scorer = (*Model)(nil)
