package prefs

import (
	"testing"

	"github.com/sakurapi/newapi-console/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService() *Service {
	return NewService(NewMemoryStorage())
}

// TestColumnVisibility_DefaultAllVisible 无偏好时全部可见并持久化默认值
func TestColumnVisibility_DefaultAllVisible(t *testing.T) {
	storage := NewMemoryStorage()
	s := NewService(storage)

	visible := s.ColumnVisibility("channel", []string{"id", "name", "status"})
	for _, col := range []string{"id", "name", "status"} {
		if !visible[col] {
			t.Errorf("column %s should default to visible", col)
		}
	}

	// 默认值已持久化
	if _, ok, _ := storage.Get("columns:channel"); !ok {
		t.Error("default visibility should be persisted")
	}
}

// TestColumnVisibility_NewColumnDefaultsVisible 偏好里缺少的新列补为可见
func TestColumnVisibility_NewColumnDefaultsVisible(t *testing.T) {
	s := newTestService()
	if err := s.SetColumnVisibility("channel", map[string]bool{"id": true, "name": false}); err != nil {
		t.Fatalf("SetColumnVisibility() failed: %v", err)
	}

	// 新版本多了 response_time 列
	visible := s.ColumnVisibility("channel", []string{"id", "name", "response_time"})
	if !visible["response_time"] {
		t.Error("newly introduced column should default to visible")
	}
	if visible["name"] {
		t.Error("saved hidden column should stay hidden")
	}
}

// TestColumnVisibility_CorruptBlobFallsBack 偏好损坏时回落全部可见
func TestColumnVisibility_CorruptBlobFallsBack(t *testing.T) {
	storage := NewMemoryStorage()
	s := NewService(storage)
	_ = storage.Set("columns:channel", "{corrupt")

	visible := s.ColumnVisibility("channel", []string{"id", "name"})
	if !visible["id"] || !visible["name"] {
		t.Error("corrupt blob should fall back to all visible")
	}
}

// TestPageSize_Fallback 非法或缺失时回落默认值
func TestPageSize_Fallback(t *testing.T) {
	storage := NewMemoryStorage()
	s := NewService(storage)

	if got := s.PageSize(); got != DefaultPageSize {
		t.Errorf("PageSize() = %d, want %d", got, DefaultPageSize)
	}

	_ = storage.Set("page_size", "not-a-number")
	if got := s.PageSize(); got != DefaultPageSize {
		t.Errorf("PageSize() with garbage = %d, want %d", got, DefaultPageSize)
	}

	if err := s.SetPageSize(50); err != nil {
		t.Fatalf("SetPageSize() failed: %v", err)
	}
	if got := s.PageSize(); got != 50 {
		t.Errorf("PageSize() = %d, want 50", got)
	}
}

func TestIDSortAndTheme(t *testing.T) {
	s := newTestService()

	if s.IDSort() {
		t.Error("IDSort() should default to false")
	}
	_ = s.SetIDSort(true)
	if !s.IDSort() {
		t.Error("IDSort() should be true after set")
	}

	_ = s.SetTheme("dark")
	if s.Theme() != "dark" {
		t.Errorf("Theme() = %q, want dark", s.Theme())
	}
}

func TestCachedModels_Roundtrip(t *testing.T) {
	s := newTestService()

	if got := s.CachedModels(1); got != nil {
		t.Errorf("CachedModels() on empty cache = %v, want nil", got)
	}

	_ = s.SetCachedModels(1, []string{"gpt-4o", "gpt-4o-mini"})
	got := s.CachedModels(1)
	if len(got) != 2 || got[0] != "gpt-4o" {
		t.Errorf("CachedModels() = %v", got)
	}
}

// TestStatusBlob_PatchField 原位更新状态 JSON 的单个字段
func TestStatusBlob_PatchField(t *testing.T) {
	s := newTestService()
	_ = s.SetStatusBlob(`{"version":"1.0","quota_per_unit":500000}`)

	if err := s.PatchStatusField("version", "1.1"); err != nil {
		t.Fatalf("PatchStatusField() failed: %v", err)
	}
	if got := s.StatusField("version").String(); got != "1.1" {
		t.Errorf("version = %q, want 1.1", got)
	}
	// 其余字段不受影响
	if got := s.StatusField("quota_per_unit").Int(); got != 500000 {
		t.Errorf("quota_per_unit = %d, want 500000", got)
	}
}

// TestGormStorage 数据库后端的读写删
func TestGormStorage(t *testing.T) {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := database.AutoMigrate(&models.Preference{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	storage := NewGormStorage(database)

	if _, ok, _ := storage.Get("theme"); ok {
		t.Error("Get() on empty table should miss")
	}

	if err := storage.Set("theme", "dark"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	v, ok, err := storage.Get("theme")
	if err != nil || !ok || v != "dark" {
		t.Errorf("Get() = (%q, %v, %v), want (dark, true, nil)", v, ok, err)
	}

	// 覆盖写
	if err := storage.Set("theme", "light"); err != nil {
		t.Fatalf("Set() overwrite failed: %v", err)
	}
	v, _, _ = storage.Get("theme")
	if v != "light" {
		t.Errorf("Get() after overwrite = %q, want light", v)
	}

	if err := storage.Delete("theme"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, ok, _ := storage.Get("theme"); ok {
		t.Error("Get() after delete should miss")
	}
}
