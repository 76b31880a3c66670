// Author: momentics <momentics@gmail.com>

package pool

import "testing"

func TestManager_GetPutExclusivity(t *testing.T) {
	m := NewManager(64, 2)

	b1, ok := m.Get()
	if !ok {
		t.Fatal("expected a free slice")
	}
	b2, ok := m.Get()
	if !ok {
		t.Fatal("expected a second free slice")
	}
	if _, ok := m.Get(); ok {
		t.Fatal("pool should be exhausted after renting both slices")
	}

	b1.Data[0] = 0xAA
	b2.Data[0] = 0xBB
	if b1.Data[0] == b2.Data[0] {
		t.Fatal("rented slices must not alias the same memory")
	}

	b1.Release()
	b3, ok := m.Get()
	if !ok {
		t.Fatal("expected slice to be available after release")
	}
	if b3.Index != b1.Index {
		t.Fatalf("expected slot %d to be reused, got %d", b1.Index, b3.Index)
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(16, 4)
	stats := m.Stats()
	if stats.Capacity != 4 {
		t.Fatalf("expected capacity 4, got %d", stats.Capacity)
	}
	b, _ := m.Get()
	if got := m.Stats().InUse; got != 1 {
		t.Fatalf("expected InUse 1, got %d", got)
	}
	b.Release()
	if got := m.Stats().InUse; got != 0 {
		t.Fatalf("expected InUse 0 after release, got %d", got)
	}
}

func TestManager_SliceSize(t *testing.T) {
	m := NewManager(128, 1)
	if m.SliceSize() != 128 {
		t.Fatalf("expected slice size 128, got %d", m.SliceSize())
	}
}
