// Package predictor abstracts the inference call. The orchestrator
// and health probe depend only on the Predictor interface; one
// concrete implementation exists per provider.
package predictor

import (
	"context"
	"time"
)

// Options are per-call generation parameters
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Result is the outcome of a single prediction
type Result struct {
	Text    string
	Tokens  int
	Latency time.Duration
}

// Predictor is the inference capability consumed by health probes and
// the predict endpoint
type Predictor interface {
	Predict(ctx context.Context, input string, opts Options) (*Result, error)
}
