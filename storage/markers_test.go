package storage

import (
	"testing"
)

func TestMarkersRoundTrip(t *testing.T) {
	m, err := OpenMarkers(t.TempDir())
	if err != nil {
		t.Fatalf("OpenMarkers() error = %v", err)
	}
	defer m.Close()

	if _, ok, err := m.Get("quick_action_active"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}

	if err := m.Set("quick_action_active", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := m.Get("quick_action_active")
	if err != nil || !ok || v != "true" {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}

	// Overwrite.
	if err := m.Set("quick_action_active", "false"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, _, _ := m.Get("quick_action_active"); v != "false" {
		t.Errorf("Get() after overwrite = %q, want %q", v, "false")
	}

	if err := m.Remove("quick_action_active"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := m.Get("quick_action_active"); ok {
		t.Error("key still present after Remove()")
	}

	// Removing a missing key is fine.
	if err := m.Remove("never_set"); err != nil {
		t.Errorf("Remove() of missing key error = %v", err)
	}
}

func TestMarkersSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	m, err := OpenMarkers(dir)
	if err != nil {
		t.Fatalf("OpenMarkers() error = %v", err)
	}
	if err := m.Set("quick_action_name", "Extract Dates"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	m.Close()

	// A reopened store stands in for a restarted process.
	m2, err := OpenMarkers(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer m2.Close()

	v, ok, err := m2.Get("quick_action_name")
	if err != nil || !ok || v != "Extract Dates" {
		t.Errorf("Get() after reopen = %q, %v, %v; want persisted value", v, ok, err)
	}
}

func TestMarkersList(t *testing.T) {
	m, err := OpenMarkers(t.TempDir())
	if err != nil {
		t.Fatalf("OpenMarkers() error = %v", err)
	}
	defer m.Close()

	m.Set("a", "1")
	m.Set("b", "2")

	all, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all["a"] != "1" || all["b"] != "2" {
		t.Errorf("List() = %v", all)
	}
}
