package traffic

import (
	"errors"
	"testing"

	"go_modelops/internal/model"
	"go_modelops/internal/testdb"

	"gorm.io/gorm"
)

func seedVersion(t *testing.T, db *gorm.DB, modelName, version string) uint {
	t.Helper()
	m := model.Model{Name: modelName}
	if err := db.Where("name = ?", modelName).FirstOrCreate(&m).Error; err != nil {
		t.Fatalf("failed to seed model: %v", err)
	}
	v := model.Version{ModelID: m.ID, Version: version, Status: model.VersionStatusActive}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("failed to seed version: %v", err)
	}
	return v.ID
}

func TestSetTraffic(t *testing.T) {
	db := testdb.New(t)
	c := NewController(db)
	versionID := seedVersion(t, db, "gemini", "1.0.0")

	if err := c.SetTraffic(versionID, 50); err != nil {
		t.Fatalf("SetTraffic error: %v", err)
	}
	pct, err := c.GetTraffic(versionID)
	if err != nil {
		t.Fatalf("GetTraffic error: %v", err)
	}
	if pct != 50 {
		t.Errorf("expected 50, got %d", pct)
	}

	t.Run("write is an upsert", func(t *testing.T) {
		if err := c.SetTraffic(versionID, 100); err != nil {
			t.Fatalf("SetTraffic error: %v", err)
		}
		pct, err := c.GetTraffic(versionID)
		if err != nil {
			t.Fatal(err)
		}
		if pct != 100 {
			t.Errorf("expected 100, got %d", pct)
		}

		var count int64
		db.Model(&model.TrafficAllocation{}).Where("version_id = ?", versionID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 allocation row, got %d", count)
		}
	})

	t.Run("percentage bounds", func(t *testing.T) {
		for _, pct := range []int{-1, 101} {
			if err := c.SetTraffic(versionID, pct); !errors.Is(err, ErrInvalidPercentage) {
				t.Errorf("SetTraffic(%d) = %v, want ErrInvalidPercentage", pct, err)
			}
		}
	})

	t.Run("unknown version is an error", func(t *testing.T) {
		if err := c.SetTraffic(99999, 50); !errors.Is(err, ErrVersionNotFound) {
			t.Errorf("expected ErrVersionNotFound, got: %v", err)
		}
	})
}

func TestGetTrafficDefault(t *testing.T) {
	db := testdb.New(t)
	c := NewController(db)
	versionID := seedVersion(t, db, "gemini", "1.0.0")

	pct, err := c.GetTraffic(versionID)
	if err != nil {
		t.Fatalf("GetTraffic error: %v", err)
	}
	if pct != 0 {
		t.Errorf("expected 0 for version without allocation, got %d", pct)
	}
}

func TestClearOthers(t *testing.T) {
	db := testdb.New(t)
	c := NewController(db)

	v1 := seedVersion(t, db, "gemini", "1.0.0")
	v2 := seedVersion(t, db, "gemini", "2.0.0")
	other := seedVersion(t, db, "claude", "1.0.0")

	var m model.Model
	if err := db.Where("name = ?", "gemini").First(&m).Error; err != nil {
		t.Fatal(err)
	}

	for _, id := range []uint{v1, v2, other} {
		if err := c.SetTraffic(id, 50); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.ClearOthers(m.ID, v2); err != nil {
		t.Fatalf("ClearOthers error: %v", err)
	}

	tests := []struct {
		name string
		id   uint
		want int
	}{
		{"sibling cleared", v1, 0},
		{"kept version untouched", v2, 50},
		{"other model untouched", other, 50},
	}
	for _, tt := range tests {
		pct, err := c.GetTraffic(tt.id)
		if err != nil {
			t.Fatalf("%s: GetTraffic error: %v", tt.name, err)
		}
		if pct != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, pct)
		}
	}
}
