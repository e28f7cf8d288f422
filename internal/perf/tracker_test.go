package perf

import (
	"math"
	"testing"

	"go_modelops/internal/model"
	"go_modelops/internal/testdb"

	"gorm.io/gorm"
)

func newTestTracker(t *testing.T) (*Tracker, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	return NewTracker(db), db
}

func seedVersion(t *testing.T, db *gorm.DB, modelName, version string) uint {
	t.Helper()
	m := model.Model{Name: modelName}
	if err := db.Where("name = ?", modelName).FirstOrCreate(&m).Error; err != nil {
		t.Fatal(err)
	}
	v := model.Version{ModelID: m.ID, Version: version, Status: model.VersionStatusActive}
	if err := db.Create(&v).Error; err != nil {
		t.Fatal(err)
	}
	return v.ID
}

func TestTrackPrediction(t *testing.T) {
	tr, db := newTestTracker(t)
	versionID := seedVersion(t, db, "gemini", "1.0.0")

	if err := tr.TrackPrediction("gemini", "1.0.0", 0.5, 120, true); err != nil {
		t.Fatalf("TrackPrediction error: %v", err)
	}

	var count int64
	db.Model(&model.Metric{}).Where("version_id = ?", versionID).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 samples per prediction, got %d", count)
	}

	t.Run("unknown version is dropped silently", func(t *testing.T) {
		if err := tr.TrackPrediction("gemini", "9.9.9", 0.5, 120, true); err != nil {
			t.Errorf("unknown version must not error, got: %v", err)
		}
	})
}

func TestGetMetrics(t *testing.T) {
	tr, db := newTestTracker(t)
	seedVersion(t, db, "gemini", "1.0.0")

	if err := tr.TrackPrediction("gemini", "1.0.0", 0.4, 100, true); err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackPrediction("gemini", "1.0.0", 0.8, 200, true); err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackPrediction("gemini", "1.0.0", 1.2, 300, false); err != nil {
		t.Fatal(err)
	}

	m, err := tr.GetMetrics("gemini", "1.0.0")
	if err != nil {
		t.Fatalf("GetMetrics error: %v", err)
	}
	if m.AvgLatency != 0.8 {
		t.Errorf("AvgLatency = %v, want 0.8", m.AvgLatency)
	}
	if m.MinLatency != 0.4 || m.MaxLatency != 1.2 {
		t.Errorf("latency range = [%v, %v], want [0.4, 1.2]", m.MinLatency, m.MaxLatency)
	}
	if m.AvgTokens != 200 || m.TotalTokens != 600 {
		t.Errorf("tokens = avg %v total %d, want avg 200 total 600", m.AvgTokens, m.TotalTokens)
	}
	if m.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", m.TotalRequests)
	}
	if m.SuccessRate != 66.67 {
		t.Errorf("SuccessRate = %v, want 66.67", m.SuccessRate)
	}

	t.Run("unknown version", func(t *testing.T) {
		if _, err := tr.GetMetrics("gemini", "9.9.9"); err == nil {
			t.Error("expected error for unknown version")
		}
	})

	t.Run("no samples gives zeros", func(t *testing.T) {
		seedVersion(t, db, "gemini", "2.0.0")
		m, err := tr.GetMetrics("gemini", "2.0.0")
		if err != nil {
			t.Fatalf("GetMetrics error: %v", err)
		}
		if m.TotalRequests != 0 || m.AvgLatency != 0 || m.SuccessRate != 0 {
			t.Errorf("expected zero aggregates, got: %+v", m)
		}
	})
}

func TestCompareVersions(t *testing.T) {
	tr, db := newTestTracker(t)
	seedVersion(t, db, "gemini", "1.0.0")
	seedVersion(t, db, "gemini", "2.0.0")

	for _, latency := range []float64{0.4, 0.6} {
		if err := tr.TrackPrediction("gemini", "1.0.0", latency, 100, true); err != nil {
			t.Fatal(err)
		}
	}
	for _, latency := range []float64{0.9, 1.1} {
		if err := tr.TrackPrediction("gemini", "2.0.0", latency, 150, true); err != nil {
			t.Fatal(err)
		}
	}

	cmp, err := tr.CompareVersions("gemini", "1.0.0", "2.0.0")
	if err != nil {
		t.Fatalf("CompareVersions error: %v", err)
	}

	// the diff is exactly version2's average minus version1's
	want := cmp.Version2.AvgLatency - cmp.Version1.AvgLatency
	if cmp.LatencyDiff != want {
		t.Errorf("LatencyDiff = %v, want %v", cmp.LatencyDiff, want)
	}
	if math.Abs(cmp.LatencyDiff-0.5) > 1e-9 {
		t.Errorf("LatencyDiff = %v, want 0.5", cmp.LatencyDiff)
	}
	if cmp.TokensDiff != 50 {
		t.Errorf("TokensDiff = %v, want 50", cmp.TokensDiff)
	}
	if cmp.SuccessRateDiff != 0 {
		t.Errorf("SuccessRateDiff = %v, want 0", cmp.SuccessRateDiff)
	}

	t.Run("fails when one side has no samples", func(t *testing.T) {
		seedVersion(t, db, "gemini", "3.0.0")
		if _, err := tr.CompareVersions("gemini", "1.0.0", "3.0.0"); err == nil {
			t.Error("expected error comparing against empty version")
		}
	})
}

func TestErrorRate(t *testing.T) {
	tr, db := newTestTracker(t)
	versionID := seedVersion(t, db, "gemini", "1.0.0")

	rate, err := tr.ErrorRate(versionID)
	if err != nil {
		t.Fatalf("ErrorRate error: %v", err)
	}
	if rate != 0 {
		t.Errorf("expected 0 without samples, got %v", rate)
	}

	for i := 0; i < 3; i++ {
		if err := tr.TrackPrediction("gemini", "1.0.0", 0.5, 100, true); err != nil {
			t.Fatal(err)
		}
	}
	if err := tr.TrackPrediction("gemini", "1.0.0", 0.5, 100, false); err != nil {
		t.Fatal(err)
	}

	rate, err = tr.ErrorRate(versionID)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rate-0.25) > 1e-9 {
		t.Errorf("ErrorRate = %v, want 0.25", rate)
	}
}

func TestVersionRanking(t *testing.T) {
	tr, db := newTestTracker(t)
	seedVersion(t, db, "gemini", "1.0.0")
	seedVersion(t, db, "gemini", "2.0.0")
	seedVersion(t, db, "gemini", "3.0.0") // no samples, excluded

	// v1: slow but reliable, v2: fast and reliable
	if err := tr.TrackPrediction("gemini", "1.0.0", 2.0, 100, true); err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackPrediction("gemini", "2.0.0", 0.5, 100, true); err != nil {
		t.Fatal(err)
	}

	ranked, err := tr.VersionRanking("gemini")
	if err != nil {
		t.Fatalf("VersionRanking error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked versions, got %d", len(ranked))
	}
	if ranked[0].Version != "2.0.0" {
		t.Errorf("expected fastest version first, got %s", ranked[0].Version)
	}
	if ranked[0].PerformanceScore <= ranked[1].PerformanceScore {
		t.Errorf("ranking not in descending score order: %v vs %v",
			ranked[0].PerformanceScore, ranked[1].PerformanceScore)
	}
}
