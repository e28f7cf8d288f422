package deploy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go_modelops/internal/model"
	"go_modelops/internal/testdb"
	"go_modelops/internal/traffic"

	"gorm.io/gorm"
)

// stubProber returns canned health verdicts and records each probe
type stubProber struct {
	mu       sync.Mutex
	healthy  bool
	verdicts []bool // consumed in order when non-empty
	probes   int
}

func (p *stubProber) Healthy(ctx context.Context, modelName, version string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	if len(p.verdicts) > 0 {
		v := p.verdicts[0]
		p.verdicts = p.verdicts[1:]
		return v
	}
	return p.healthy
}

func seedVersion(t *testing.T, db *gorm.DB, modelName, version string) Target {
	t.Helper()
	m := model.Model{Name: modelName}
	if err := db.Where("name = ?", modelName).FirstOrCreate(&m).Error; err != nil {
		t.Fatalf("failed to seed model: %v", err)
	}
	v := model.Version{ModelID: m.ID, Version: version, Status: model.VersionStatusActive}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("failed to seed version: %v", err)
	}
	return Target{ModelName: modelName, Version: version, ModelID: m.ID, VersionID: v.ID}
}

func mustTraffic(t *testing.T, tc *traffic.Controller, versionID uint) int {
	t.Helper()
	pct, err := tc.GetTraffic(versionID)
	if err != nil {
		t.Fatalf("GetTraffic error: %v", err)
	}
	return pct
}

func TestDirectStrategy(t *testing.T) {
	db := testdb.New(t)
	tc := traffic.NewController(db)
	target := seedVersion(t, db, "gemini", "1.0.0")

	if err := NewDirectStrategy(tc).Run(context.Background(), target); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if pct := mustTraffic(t, tc, target.VersionID); pct != 100 {
		t.Errorf("expected 100%% traffic, got %d", pct)
	}
}

func TestBlueGreenStrategy(t *testing.T) {
	t.Run("healthy cuts over to 100", func(t *testing.T) {
		db := testdb.New(t)
		tc := traffic.NewController(db)
		target := seedVersion(t, db, "gemini", "1.0.0")
		prober := &stubProber{healthy: true}

		if err := NewBlueGreenStrategy(tc, prober, 0).Run(context.Background(), target); err != nil {
			t.Fatalf("Run error: %v", err)
		}
		if pct := mustTraffic(t, tc, target.VersionID); pct != 100 {
			t.Errorf("expected 100%% traffic, got %d", pct)
		}
		if prober.probes != 1 {
			t.Errorf("expected 1 probe, got %d", prober.probes)
		}
	})

	t.Run("unhealthy leaves traffic at 0", func(t *testing.T) {
		db := testdb.New(t)
		tc := traffic.NewController(db)
		target := seedVersion(t, db, "gemini", "1.0.0")
		prober := &stubProber{healthy: false}

		err := NewBlueGreenStrategy(tc, prober, 0).Run(context.Background(), target)
		if !errors.Is(err, ErrUnhealthy) {
			t.Fatalf("expected ErrUnhealthy, got: %v", err)
		}
		if pct := mustTraffic(t, tc, target.VersionID); pct != 0 {
			t.Errorf("expected 0%% traffic after abort, got %d", pct)
		}
	})
}

func TestCanaryStrategy(t *testing.T) {
	t.Run("healthy walks all stages to 100", func(t *testing.T) {
		db := testdb.New(t)
		tc := traffic.NewController(db)
		target := seedVersion(t, db, "gemini", "1.0.0")
		prober := &stubProber{healthy: true}

		if err := NewCanaryStrategy(tc, prober, 0, nil).Run(context.Background(), target); err != nil {
			t.Fatalf("Run error: %v", err)
		}
		if pct := mustTraffic(t, tc, target.VersionID); pct != 100 {
			t.Errorf("expected 100%% traffic, got %d", pct)
		}
		if prober.probes != 3 {
			t.Errorf("expected 3 probes for default stages, got %d", prober.probes)
		}
	})

	t.Run("unhealthy stage aborts fully to 0", func(t *testing.T) {
		db := testdb.New(t)
		tc := traffic.NewController(db)
		target := seedVersion(t, db, "gemini", "1.0.0")
		// pass 10%, fail at 50%
		prober := &stubProber{verdicts: []bool{true, false}}

		err := NewCanaryStrategy(tc, prober, 0, nil).Run(context.Background(), target)
		if !errors.Is(err, ErrUnhealthy) {
			t.Fatalf("expected ErrUnhealthy, got: %v", err)
		}
		if pct := mustTraffic(t, tc, target.VersionID); pct != 0 {
			t.Errorf("expected full abort to 0%%, got %d", pct)
		}
		// the 100% stage must never be probed
		if prober.probes != 2 {
			t.Errorf("expected 2 probes, got %d", prober.probes)
		}
	})

	t.Run("custom stages", func(t *testing.T) {
		db := testdb.New(t)
		tc := traffic.NewController(db)
		target := seedVersion(t, db, "gemini", "1.0.0")
		prober := &stubProber{healthy: true}

		if err := NewCanaryStrategy(tc, prober, 0, []int{25, 100}).Run(context.Background(), target); err != nil {
			t.Fatalf("Run error: %v", err)
		}
		if prober.probes != 2 {
			t.Errorf("expected 2 probes, got %d", prober.probes)
		}
	})
}

func TestObserveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := observe(ctx, time.Minute); err == nil {
		t.Error("expected error from cancelled context")
	}
}
