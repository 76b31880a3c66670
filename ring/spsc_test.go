// Author: momentics <momentics@gmail.com>

package ring

import (
	"sync"
	"testing"
)

func TestSPSC_RoundsUpToPowerOfTwo(t *testing.T) {
	r := New[int](5)
	if r.Cap() != 8 {
		t.Fatalf("expected capacity rounded up to 8, got %d", r.Cap())
	}
}

func TestSPSC_FullEmptyNoPanic(t *testing.T) {
	r := New[int](2)
	if !r.TryEnqueue(1) {
		t.Fatal("expected enqueue to succeed")
	}
	if !r.TryEnqueue(2) {
		t.Fatal("expected enqueue to succeed")
	}
	if r.TryEnqueue(3) {
		t.Fatal("expected enqueue to fail: ring full")
	}
	if v, ok := r.TryDequeue(); !ok || v != 1 {
		t.Fatalf("expected (1,true), got (%v,%v)", v, ok)
	}
	if v, ok := r.TryDequeue(); !ok || v != 2 {
		t.Fatalf("expected (2,true), got (%v,%v)", v, ok)
	}
	if _, ok := r.TryDequeue(); ok {
		t.Fatal("expected dequeue to fail: ring empty")
	}
}

// TestSPSC_NoLoss exercises the no-loss SPSC property from spec §8: every
// enqueued item is eventually observed by the consumer in order.
func TestSPSC_NoLoss(t *testing.T) {
	const n = 200000
	r := New[int](1024)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.TryEnqueue(i) {
				// spin until space exists
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if v, ok := r.TryDequeue(); ok {
				received = append(received, v)
			}
		}
	}()

	wg.Wait()
	for i, v := range received {
		if v != i {
			t.Fatalf("order violation at index %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestSPSC_Clear(t *testing.T) {
	r := New[int](4)
	r.TryEnqueue(1)
	r.TryEnqueue(2)
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after clear, got len %d", r.Len())
	}
	if !r.TryEnqueue(9) {
		t.Fatal("expected ring to accept items after clear")
	}
}
