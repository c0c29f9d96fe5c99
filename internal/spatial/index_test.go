package spatial

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
)

func TestUpsertPositionRoundTrip(t *testing.T) {
	ix := New(nil)
	p := geo.Position{North: 12.5, East: -3, Down: -120}
	if err := ix.Upsert("t1", p); err != nil {
		t.Fatal(err)
	}
	got, ok := ix.Position("t1")
	if !ok || got != p {
		t.Fatalf("Position = %+v, %v", got, ok)
	}
	if !ix.Remove("t1") || ix.Contains("t1") || ix.Len() != 0 {
		t.Fatalf("remove failed")
	}
	if ix.Remove("t1") {
		t.Fatalf("second remove should report absent")
	}
}

func TestValidationLeavesIndexUnchanged(t *testing.T) {
	ix := New(nil)
	_ = ix.Upsert("keep", geo.Position{})
	if err := ix.Upsert("  ", geo.Position{}); !errors.Is(err, simerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := ix.Replace(map[string]geo.Position{"a": {}, "": {}}); !errors.Is(err, simerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ix.Len() != 1 || !ix.Contains("keep") {
		t.Fatalf("index mutated by rejected calls")
	}
	if _, err := ix.WithinRadius(geo.Position{}, 0); !errors.Is(err, simerr.ErrValidation) {
		t.Fatalf("expected validation error for zero radius")
	}
	if _, _, err := ix.Nearest(geo.Position{}, -1); !errors.Is(err, simerr.ErrValidation) {
		t.Fatalf("expected validation error for negative distance")
	}
}

func TestQueries(t *testing.T) {
	ix := New(&Box{Min: geo.Position{North: -1000, East: -1000, Down: -500}, Max: geo.Position{North: 1000, East: 1000, Down: 0}})
	_ = ix.Replace(map[string]geo.Position{
		"near": {North: 10},
		"mid":  {North: 100},
		"far":  {North: 900},
	})

	ids, err := ix.WithinRadius(geo.Position{}, 150)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(ids) != "[near mid]" {
		t.Fatalf("WithinRadius = %v", ids)
	}

	box := ix.WithinBox(Box{Min: geo.Position{North: 50, Down: -1}, Max: geo.Position{North: 1000, Down: 1}})
	if fmt.Sprint(box) != "[far mid]" {
		t.Fatalf("WithinBox = %v", box)
	}

	id, d, err := ix.Nearest(geo.Position{North: 120}, 500)
	if err != nil || id != "mid" || d != 20 {
		t.Fatalf("Nearest = %s %v %v", id, d, err)
	}
	if _, _, err := ix.Nearest(geo.Position{North: 500}, 10); !errors.Is(err, simerr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if !ix.InBounds(geo.Position{Down: -10}) || ix.InBounds(geo.Position{Down: 10}) {
		t.Fatalf("bounds check mismatch")
	}
}

func TestConcurrentAccess(t *testing.T) {
	ix := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d", i)
			for j := 0; j < 100; j++ {
				_ = ix.Upsert(id, geo.Position{North: float64(j)})
				_, _ = ix.WithinRadius(geo.Position{}, 50)
			}
		}(i)
	}
	wg.Wait()
	if ix.Len() != 8 {
		t.Fatalf("expected 8 ids, got %d", ix.Len())
	}
}
