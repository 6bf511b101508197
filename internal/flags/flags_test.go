package flags

import (
	"errors"
	"testing"

	"github.com/sadopc/moodlog/internal/store"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get("goal_done_1"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set("goal_done_1", "2024-05-15"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("goal_done_1")
	if err != nil || !ok || v != "2024-05-15" {
		t.Fatalf("expected 2024-05-15, got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Set("goal_done_1", "2024-05-16"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.Get("goal_done_1"); v != "2024-05-16" {
		t.Errorf("expected overwrite, got %q", v)
	}
	if err := s.Remove("goal_done_1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.Get("goal_done_1"); ok {
		t.Error("expected key gone after Remove")
	}
	if err := s.Remove("goal_done_1"); err != nil {
		t.Errorf("removing a missing key should succeed, got %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestDisk(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	exerciseStore(t, d)
}

func TestDiskPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if err := d.Set("goal_done_7", "2024-05-15"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, err := reopened.Get("goal_done_7")
	if err != nil || !ok || v != "2024-05-15" {
		t.Fatalf("expected persisted flag, got %q ok=%v err=%v", v, ok, err)
	}
	if keys := reopened.Keys(); len(keys) != 1 || keys[0] != "goal_done_7" {
		t.Errorf("expected one key, got %v", keys)
	}
}

var (
	_ Lister = (*Disk)(nil)
	_ Lister = (*Memory)(nil)
)

func TestNewDiskEmptyPath(t *testing.T) {
	if _, err := NewDisk("  "); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	if _, _, err := s.Get("k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get: expected ErrUnavailable, got %v", err)
	}
	if err := s.Set("k", "v"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Set: expected ErrUnavailable, got %v", err)
	}
	if err := s.Remove("k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Remove: expected ErrUnavailable, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	db, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	exerciseStore(t, NewSettings(db))

	if err := NewSettings(db).Set("trend_days", "30"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := db.GetSetting("trend_days")
	if err != nil || v != "7" {
		t.Errorf("flag must not overwrite preference, got %q err=%v", v, err)
	}
}
