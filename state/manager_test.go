package state

import (
	"math/big"
	"testing"

	"dexcore/storage"
)

type record struct {
	Name  string
	Value *big.Int
}

func TestRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	put := &record{Name: "k", Value: big.NewInt(42)}
	if err := manager.KVPut([]byte("test/record"), put); err != nil {
		t.Fatalf("put: %v", err)
	}
	got := &record{}
	ok, err := manager.KVGet([]byte("test/record"), got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to exist")
	}
	if got.Name != put.Name || got.Value.Cmp(put.Value) != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	ok, err = manager.KVGet([]byte("test/missing"), nil)
	if err != nil {
		t.Fatalf("existence check: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}
}

func TestSnapshotRevert(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	if err := manager.KVPut([]byte("a"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	snap := manager.Snapshot()
	if err := manager.KVPut([]byte("a"), uint64(2)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := manager.KVPut([]byte("b"), uint64(3)); err != nil {
		t.Fatalf("put new: %v", err)
	}
	manager.RevertToSnapshot(snap)

	var a uint64
	if _, err := manager.KVGet([]byte("a"), &a); err != nil {
		t.Fatalf("get a: %v", err)
	}
	if a != 1 {
		t.Fatalf("expected a=1 after revert, got %d", a)
	}
	ok, err := manager.KVGet([]byte("b"), nil)
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if ok {
		t.Fatal("expected b removed after revert")
	}
}

func TestNestedSnapshots(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	outer := manager.Snapshot()
	if err := manager.KVPut([]byte("x"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	inner := manager.Snapshot()
	if err := manager.KVPut([]byte("x"), uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	manager.RevertToSnapshot(inner)

	var x uint64
	if _, err := manager.KVGet([]byte("x"), &x); err != nil {
		t.Fatalf("get: %v", err)
	}
	if x != 1 {
		t.Fatalf("expected x=1 after inner revert, got %d", x)
	}

	manager.RevertToSnapshot(outer)
	ok, err := manager.KVGet([]byte("x"), nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected x removed after outer revert")
	}
}

func TestFinaliseKeepsState(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	if err := manager.KVPut([]byte("k"), uint64(7)); err != nil {
		t.Fatalf("put: %v", err)
	}
	manager.Finalise()

	var v uint64
	ok, err := manager.KVGet([]byte("k"), &v)
	if err != nil || !ok {
		t.Fatalf("get after finalise: ok=%v err=%v", ok, err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}
