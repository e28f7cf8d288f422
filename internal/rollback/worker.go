package rollback

import (
	"context"
	"time"

	"go_modelops/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultIntervalSec = 60

// Worker periodically checks each model with a completed deployment
// and triggers an automatic rollback when its error rate crosses the
// threshold. Cooperative, not preemptive: it never cancels an
// in-flight rollout, it just races the same traffic controller under
// the same per-model locks.
type Worker struct {
	ctx            context.Context
	cancel         context.CancelFunc
	db             *gorm.DB
	service        *Service
	logger         *logrus.Entry
	interval       time.Duration
	errorThreshold float64
}

// WorkerConfig holds the configuration for the auto-rollback worker
type WorkerConfig struct {
	DB             *gorm.DB
	Service        *Service
	IntervalSec    int
	ErrorThreshold float64
}

// NewWorker creates an auto-rollback worker. A non-positive interval
// is clamped so a misconfigured interval_sec cannot panic the ticker.
func NewWorker(cfg *WorkerConfig) *Worker {
	intervalSec := cfg.IntervalSec
	if intervalSec <= 0 {
		intervalSec = defaultIntervalSec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ctx:            ctx,
		cancel:         cancel,
		db:             cfg.DB,
		service:        cfg.Service,
		logger:         logrus.WithField("component", "auto-rollback-worker"),
		interval:       time.Duration(intervalSec) * time.Second,
		errorThreshold: cfg.ErrorThreshold,
	}
}

// Start begins the periodic checks
func (w *Worker) Start() {
	w.logger.Info("Starting auto-rollback worker...")
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.runChecks()
			case <-w.ctx.Done():
				w.logger.Info("Stopping auto-rollback worker...")
				return
			}
		}
	}()
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.cancel()
}

func (w *Worker) runChecks() {
	models, err := w.deployedModels()
	if err != nil {
		w.logger.Errorf("Failed to list deployed models: %v", err)
		return
	}

	for _, name := range models {
		rolledBack, err := w.service.AutoOnError(name, w.errorThreshold)
		if err != nil {
			w.logger.Errorf("Auto-rollback check failed for %s: %v", name, err)
			continue
		}
		if rolledBack {
			w.logger.Warnf("Auto-rollback triggered for %s", name)
		}
	}
}

// deployedModels lists models with at least one completed deployment
func (w *Worker) deployedModels() ([]string, error) {
	var names []string
	err := w.db.Model(&model.Deployment{}).
		Distinct("models.name").
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("deployments.status = ?", model.DeploymentStatusCompleted).
		Pluck("models.name", &names).Error
	return names, err
}
