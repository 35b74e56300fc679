package state

import (
	"path/filepath"
	"testing"

	"main/internal/schema"
)

func TestApplyFill(t *testing.T) {
	b := NewBook()

	if got := b.ApplyFill("rb2410", schema.OrderSideBuy, 1); got != 1 {
		t.Fatalf("after buy: got %d want 1", got)
	}
	if got := b.ApplyFill("rb2410", schema.OrderSideSell, 1); got != 0 {
		t.Fatalf("after sell: got %d want 0", got)
	}
	if got := b.ApplyFill("rb2410", schema.OrderSideSell, 2); got != -2 {
		t.Fatalf("after short: got %d want -2", got)
	}
	if got := b.Position("rb2410"); got != -2 {
		t.Fatalf("position: got %d want -2", got)
	}
	if got := b.Position("cu2410"); got != 0 {
		t.Fatalf("untouched instrument should be flat, got %d", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	b := NewBook()
	b.ApplyFill("rb2410", schema.OrderSideBuy, 1)
	b.ApplyFill("cu2410", schema.OrderSideSell, 3)

	path := filepath.Join(t.TempDir(), "positions.json")
	if err := WriteSnapshot(path, b.Snapshot()); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	loaded, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if err := CompareSnapshots(loaded, b.Snapshot()); err != nil {
		t.Fatalf("compare snapshot: %v", err)
	}
}

func TestCompareSnapshotsMismatch(t *testing.T) {
	a := NewBook()
	a.ApplyFill("rb2410", schema.OrderSideBuy, 1)
	b := NewBook()
	b.ApplyFill("rb2410", schema.OrderSideBuy, 2)

	if err := CompareSnapshots(a.Snapshot(), b.Snapshot()); err == nil {
		t.Fatalf("expected lots mismatch error")
	}

	c := NewBook()
	c.ApplyFill("cu2410", schema.OrderSideBuy, 1)
	if err := CompareSnapshots(a.Snapshot(), c.Snapshot()); err == nil {
		t.Fatalf("expected missing instrument error")
	}
}
