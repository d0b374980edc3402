package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ccdc-products-go/pkg/models"
)

func TestProductPath(t *testing.T) {
	chip := models.Chip{Cx: -1815585, Cy: 1064805, Tile: "h05v02"}
	got := ProductPath("change", chip, "2014-07-01")
	want := "json/h05v02/-1815585/1064805/change/change--1815585-1064805-2014-07-01.json"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key := "json/h01v01/100/200/cover/cover-100-200-2000-01-01.json"
	in := []models.ProductValue{{Px: 100, Py: 200, Date: "2000-01-01", Values: map[string]float64{"lcpri": 4}}}
	if err := s.PutJSON(context.Background(), key, in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("document not on disk: %v", err)
	}

	var out []models.ProductValue
	if err := s.GetJSON(context.Background(), key, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(out) != 1 || out[0].Px != 100 || out[0].Values["lcpri"] != 4 {
		t.Errorf("got %+v, want %+v", out, in)
	}

	entries, err := os.ReadDir(filepath.Dir(filepath.Join(dir, filepath.FromSlash(key))))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover temp files: got %d entries, want 1", len(entries))
	}
}

func TestFileStore_NotFound(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	var out any
	err = s.GetJSON(context.Background(), "json/missing.json", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.PutJSON(ctx, "json/x.json", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
