package deploy

import (
	"context"
	"errors"
	"testing"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
	"go_modelops/internal/modellock"
	"go_modelops/internal/snapshot"
	"go_modelops/internal/testdb"
	"go_modelops/internal/traffic"

	"gorm.io/gorm"
)

type recordedEvent struct {
	Topic     string
	EventType string
	Payload   interface{}
}

type stubPublisher struct {
	events []recordedEvent
}

func (p *stubPublisher) Publish(topic, eventType string, payload interface{}) {
	p.events = append(p.events, recordedEvent{topic, eventType, payload})
}

func newTestService(t *testing.T, db *gorm.DB, prober *stubProber) (*Service, *traffic.Controller) {
	t.Helper()
	tc := traffic.NewController(db)
	snaps := snapshot.NewStore(db, tc)
	locks := modellock.NewRegistry()
	return NewService(db, tc, snaps, locks, prober, Options{}), tc
}

func TestDeployDirect(t *testing.T) {
	db := testdb.New(t)
	svc, tc := newTestService(t, db, &stubProber{healthy: true})
	target := seedVersion(t, db, "gemini", "1.0.0")

	pub := &stubPublisher{}
	svc.SetPublisher(pub)

	result, err := svc.Deploy(context.Background(), "gemini", "1.0.0", model.DeployStrategyDirect)
	if err != nil {
		t.Fatalf("Deploy error: %v", err)
	}
	if result.Status != model.DeploymentStatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if result.UID == "" {
		t.Error("expected deployment UID")
	}
	if result.SnapshotUID == "" {
		t.Error("completed deployment must capture a snapshot")
	}
	if pct := mustTraffic(t, tc, target.VersionID); pct != 100 {
		t.Errorf("expected 100%% traffic, got %d", pct)
	}

	var dep model.Deployment
	if err := db.Where("uid = ?", result.UID).First(&dep).Error; err != nil {
		t.Fatalf("deployment row not found: %v", err)
	}
	if dep.Status != model.DeploymentStatusCompleted {
		t.Errorf("expected completed row, got %s", dep.Status)
	}
	if dep.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	if len(pub.events) != 1 || pub.events[0].EventType != "completed" {
		t.Errorf("expected one completed event, got: %+v", pub.events)
	}
}

func TestDeployUnhealthyGate(t *testing.T) {
	db := testdb.New(t)
	svc, tc := newTestService(t, db, &stubProber{healthy: false})
	target := seedVersion(t, db, "gemini", "1.0.0")

	pub := &stubPublisher{}
	svc.SetPublisher(pub)

	result, err := svc.Deploy(context.Background(), "gemini", "1.0.0", model.DeployStrategyBlueGreen)
	if err != nil {
		t.Fatalf("a health gate abort must not be an error, got: %v", err)
	}
	if result.Status != model.DeploymentStatusFailed {
		t.Errorf("expected failed status, got %s", result.Status)
	}
	if result.SnapshotUID != "" {
		t.Error("failed deployment must not capture a snapshot")
	}
	if pct := mustTraffic(t, tc, target.VersionID); pct != 0 {
		t.Errorf("expected staged traffic to stay 0, got %d", pct)
	}

	var count int64
	db.Model(&model.Snapshot{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no snapshot rows, got %d", count)
	}

	if len(pub.events) != 1 || pub.events[0].EventType != "failed" {
		t.Errorf("expected one failed event, got: %+v", pub.events)
	}
}

func TestDeployUnknownStrategy(t *testing.T) {
	db := testdb.New(t)
	svc, _ := newTestService(t, db, &stubProber{healthy: true})
	seedVersion(t, db, "gemini", "1.0.0")

	_, err := svc.Deploy(context.Background(), "gemini", "1.0.0", "rolling")
	var appErr *httpx.AppError
	if !errors.As(err, &appErr) || appErr.Code != httpx.CodeParamIllegal {
		t.Errorf("expected param illegal error, got: %v", err)
	}
}

func TestDeployUnknownVersion(t *testing.T) {
	db := testdb.New(t)
	svc, _ := newTestService(t, db, &stubProber{healthy: true})
	seedVersion(t, db, "gemini", "1.0.0")

	_, err := svc.Deploy(context.Background(), "gemini", "9.9.9", model.DeployStrategyDirect)
	var appErr *httpx.AppError
	if !errors.As(err, &appErr) || appErr.Code != httpx.CodeNotFound {
		t.Errorf("expected not found error, got: %v", err)
	}

	// nothing may be recorded for a deploy that never started
	var count int64
	db.Model(&model.Deployment{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no deployment rows, got %d", count)
	}
}

func TestGetDeployment(t *testing.T) {
	db := testdb.New(t)
	svc, _ := newTestService(t, db, &stubProber{healthy: true})
	seedVersion(t, db, "gemini", "1.0.0")

	result, err := svc.Deploy(context.Background(), "gemini", "1.0.0", model.DeployStrategyDirect)
	if err != nil {
		t.Fatal(err)
	}

	info, err := svc.GetDeployment(result.UID)
	if err != nil {
		t.Fatalf("GetDeployment error: %v", err)
	}
	if info.ModelName != "gemini" || info.Version != "1.0.0" {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := svc.GetDeployment("no-such-uid"); err == nil {
		t.Error("expected error for unknown uid")
	}
}

func TestListDeployments(t *testing.T) {
	db := testdb.New(t)
	svc, _ := newTestService(t, db, &stubProber{healthy: true})
	seedVersion(t, db, "gemini", "1.0.0")
	seedVersion(t, db, "claude", "1.0.0")

	for _, m := range []string{"gemini", "claude", "gemini"} {
		if _, err := svc.Deploy(context.Background(), m, "1.0.0", model.DeployStrategyDirect); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.ListDeployments("", 10)
	if err != nil {
		t.Fatalf("ListDeployments error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 deployments, got %d", len(all))
	}

	gemini, err := svc.ListDeployments("gemini", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(gemini) != 2 {
		t.Errorf("expected 2 gemini deployments, got %d", len(gemini))
	}
}

func TestActiveDeployment(t *testing.T) {
	db := testdb.New(t)
	svc, _ := newTestService(t, db, &stubProber{healthy: false})
	seedVersion(t, db, "gemini", "1.0.0")
	seedVersion(t, db, "gemini", "2.0.0")

	active, err := svc.ActiveDeployment("gemini")
	if err != nil {
		t.Fatalf("ActiveDeployment error: %v", err)
	}
	if active != nil {
		t.Errorf("expected nil before any deployment, got: %+v", active)
	}

	if _, err := svc.Deploy(context.Background(), "gemini", "1.0.0", model.DeployStrategyDirect); err != nil {
		t.Fatal(err)
	}
	// failed deployments must not become active
	if _, err := svc.Deploy(context.Background(), "gemini", "2.0.0", model.DeployStrategyCanary); err != nil {
		t.Fatal(err)
	}

	active, err = svc.ActiveDeployment("gemini")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.Version != "1.0.0" {
		t.Errorf("expected active version 1.0.0, got: %+v", active)
	}
}
