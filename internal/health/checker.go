// Package health exercises a model version with trial inference calls
// and reports pass/fail. A predictor error during any check counts as
// that check failing; it never propagates out of the probe.
package health

import (
	"context"
	"fmt"
	"time"

	"go_modelops/internal/predictor"

	"github.com/sirupsen/logrus"
)

// Prober is the capability consumed by the staged deployment
// strategies
type Prober interface {
	Healthy(ctx context.Context, modelName, version string) bool
}

// Config holds probe thresholds
type Config struct {
	Timeout       time.Duration // budget for a single trial call
	MaxLatency    time.Duration // response-time threshold
	ProbeRequests int           // trial calls for the error-rate check
	MaxErrors     int           // acceptable failures in the batch
}

// Result holds the outcome of a comprehensive check
type Result struct {
	Available      bool `json:"available"`
	ResponseTimeOK bool `json:"response_time_ok"`
	ErrorRateOK    bool `json:"error_rate_ok"`
	Healthy        bool `json:"overall_healthy"`
}

// Checker runs health checks against model versions through a loader
type Checker struct {
	loader *predictor.Loader
	cfg    Config
	logger *logrus.Entry
}

// NewChecker creates a health checker
func NewChecker(loader *predictor.Loader, cfg Config) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxLatency <= 0 {
		cfg.MaxLatency = 2 * time.Second
	}
	if cfg.ProbeRequests <= 0 {
		cfg.ProbeRequests = 5
	}
	return &Checker{
		loader: loader,
		cfg:    cfg,
		logger: logrus.WithField("component", "health-checker"),
	}
}

// CheckAvailability verifies a trial call completes within the timeout
func (c *Checker) CheckAvailability(ctx context.Context, p predictor.Predictor) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	_, err := p.Predict(ctx, "health check", predictor.Options{MaxTokens: 10})
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Warnf("Availability check failed: %v", err)
		return false
	}
	if elapsed > c.cfg.Timeout {
		c.logger.Warnf("Availability check timeout: %.2fs", elapsed.Seconds())
		return false
	}

	c.logger.Debugf("Availability check passed: %.2fs", elapsed.Seconds())
	return true
}

// CheckResponseTime verifies reported latency is under the threshold
func (c *Checker) CheckResponseTime(ctx context.Context, p predictor.Predictor) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := p.Predict(ctx, "test", predictor.Options{MaxTokens: 10})
	if err != nil {
		c.logger.Warnf("Response time check failed: %v", err)
		return false
	}
	if result.Latency > c.cfg.MaxLatency {
		c.logger.Warnf("Response time too high: %.2fs", result.Latency.Seconds())
		return false
	}

	c.logger.Debugf("Response time OK: %.2fs", result.Latency.Seconds())
	return true
}

// CheckErrorRate runs a small batch of trial calls and verifies the
// failure count stays within budget
func (c *Checker) CheckErrorRate(ctx context.Context, p predictor.Predictor) bool {
	errors := 0
	for i := 0; i < c.cfg.ProbeRequests; i++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		_, err := p.Predict(callCtx, fmt.Sprintf("test %d", i), predictor.Options{MaxTokens: 10})
		cancel()
		if err != nil {
			errors++
			c.logger.Warnf("Probe request %d failed: %v", i, err)
		}
	}

	errorRate := float64(errors) / float64(c.cfg.ProbeRequests) * 100
	if errors > c.cfg.MaxErrors {
		c.logger.Warnf("Error rate too high: %.1f%%", errorRate)
		return false
	}

	c.logger.Debugf("Error rate OK: %.1f%%", errorRate)
	return true
}

// Check runs all three checks; overall health is their logical AND
func (c *Checker) Check(ctx context.Context, modelName, version string) Result {
	p, err := c.loader.Load(modelName, version)
	if err != nil {
		c.logger.Errorf("Failed to load %s v%s for health check: %v", modelName, version, err)
		return Result{}
	}

	r := Result{
		Available:      c.CheckAvailability(ctx, p),
		ResponseTimeOK: c.CheckResponseTime(ctx, p),
		ErrorRateOK:    c.CheckErrorRate(ctx, p),
	}
	r.Healthy = r.Available && r.ResponseTimeOK && r.ErrorRateOK
	return r
}

// Healthy implements the Prober interface
func (c *Checker) Healthy(ctx context.Context, modelName, version string) bool {
	return c.Check(ctx, modelName, version).Healthy
}
