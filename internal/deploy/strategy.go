package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_modelops/internal/health"
	"go_modelops/internal/model"
	"go_modelops/internal/traffic"

	"github.com/sirupsen/logrus"
)

// ErrUnhealthy marks a rollout aborted by its health gate. The
// orchestrator records the deployment as failed; the caller gets a
// failed status, not an error.
var ErrUnhealthy = errors.New("deploy: health check failed")

// Target is the resolved subject of a rollout. Strategies receive the
// version row ID up front so a traffic write can never silently miss.
type Target struct {
	ModelName string
	Version   string
	ModelID   uint
	VersionID uint
}

// Strategy moves traffic onto the target version. Run returns
// ErrUnhealthy when the health gate aborts the rollout; any other
// error is an infrastructure failure and propagates loudly.
type Strategy interface {
	Run(ctx context.Context, target Target) error
}

// observe waits out the observation interval between a traffic change
// and the next health check. Cancelling the context aborts the wait.
func observe(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DirectStrategy cuts all traffic to the target immediately. No
// staging, no health gate.
type DirectStrategy struct {
	traffic *traffic.Controller
}

// NewDirectStrategy creates a direct strategy
func NewDirectStrategy(tc *traffic.Controller) *DirectStrategy {
	return &DirectStrategy{traffic: tc}
}

// Run implements Strategy
func (s *DirectStrategy) Run(ctx context.Context, target Target) error {
	logrus.Infof("Direct deployment: %s v%s", target.ModelName, target.Version)
	if err := s.traffic.SetTraffic(target.VersionID, 100); err != nil {
		return err
	}
	logrus.Infof("Direct deployment completed: %s v%s", target.ModelName, target.Version)
	return nil
}

// BlueGreenStrategy stages the target at 0% traffic, gates on a
// health probe, then cuts over to 100%. An unhealthy probe aborts
// with traffic left at the staged value.
type BlueGreenStrategy struct {
	traffic *traffic.Controller
	prober  health.Prober
	observe time.Duration
}

// NewBlueGreenStrategy creates a blue-green strategy
func NewBlueGreenStrategy(tc *traffic.Controller, prober health.Prober, observeInterval time.Duration) *BlueGreenStrategy {
	return &BlueGreenStrategy{traffic: tc, prober: prober, observe: observeInterval}
}

// Run implements Strategy
func (s *BlueGreenStrategy) Run(ctx context.Context, target Target) error {
	logrus.Infof("Blue-Green deployment: %s v%s", target.ModelName, target.Version)

	// Phase 1: provision green at 0% traffic
	logrus.Info("Phase 1: staging green environment")
	if err := s.traffic.SetTraffic(target.VersionID, 0); err != nil {
		return err
	}
	if err := observe(ctx, s.observe); err != nil {
		return err
	}

	// Phase 2: health gate
	logrus.Info("Phase 2: running health checks")
	if !s.prober.Healthy(ctx, target.ModelName, target.Version) {
		logrus.Errorf("Health check failed: %s v%s", target.ModelName, target.Version)
		return fmt.Errorf("%w: %s v%s", ErrUnhealthy, target.ModelName, target.Version)
	}

	// Phase 3: cut over
	logrus.Info("Phase 3: switching traffic to green")
	if err := s.traffic.SetTraffic(target.VersionID, 100); err != nil {
		return err
	}

	logrus.Infof("Blue-Green deployment completed: %s v%s", target.ModelName, target.Version)
	return nil
}

// CanaryStrategy rolls traffic out through an ordered sequence of
// stages, gating each on a health probe. An unhealthy stage aborts
// the whole rollout back to 0%, not to the previous stage.
type CanaryStrategy struct {
	traffic *traffic.Controller
	prober  health.Prober
	observe time.Duration
	stages  []int
}

// NewCanaryStrategy creates a canary strategy. Stages default to
// 10/50/100 when none are given.
func NewCanaryStrategy(tc *traffic.Controller, prober health.Prober, observeInterval time.Duration, stages []int) *CanaryStrategy {
	if len(stages) == 0 {
		stages = []int{10, 50, 100}
	}
	return &CanaryStrategy{traffic: tc, prober: prober, observe: observeInterval, stages: stages}
}

// Run implements Strategy
func (s *CanaryStrategy) Run(ctx context.Context, target Target) error {
	logrus.Infof("Canary deployment: %s v%s", target.ModelName, target.Version)

	for _, stage := range s.stages {
		logrus.Infof("Canary stage: %d%% traffic", stage)

		if err := s.traffic.SetTraffic(target.VersionID, stage); err != nil {
			return err
		}
		if err := observe(ctx, s.observe); err != nil {
			return err
		}

		if !s.prober.Healthy(ctx, target.ModelName, target.Version) {
			logrus.Errorf("Health check failed at %d%%: %s v%s", stage, target.ModelName, target.Version)
			// Full abort: pull the canary entirely
			if err := s.traffic.SetTraffic(target.VersionID, 0); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s v%s at %d%%", ErrUnhealthy, target.ModelName, target.Version, stage)
		}

		logrus.Infof("Stage %d%% successful", stage)
	}

	logrus.Infof("Canary deployment completed: %s v%s", target.ModelName, target.Version)
	return nil
}

// strategySet builds the strategy table for the orchestrator
func strategySet(tc *traffic.Controller, prober health.Prober, observeInterval time.Duration, canaryStages []int) map[model.DeployStrategy]Strategy {
	return map[model.DeployStrategy]Strategy{
		model.DeployStrategyDirect:    NewDirectStrategy(tc),
		model.DeployStrategyBlueGreen: NewBlueGreenStrategy(tc, prober, observeInterval),
		model.DeployStrategyCanary:    NewCanaryStrategy(tc, prober, observeInterval, canaryStages),
	}
}
