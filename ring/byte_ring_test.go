// Author: momentics <momentics@gmail.com>

package ring

import (
	"bytes"
	"sync"
	"testing"
)

func TestByteRing_WriteReadRecord(t *testing.T) {
	r := NewByteRing(64)
	if !r.WriteRecord([]byte{1, 2, 3}) {
		t.Fatal("expected write to succeed")
	}
	var got []byte
	if !r.ReadRecord(func(payload []byte) { got = append([]byte(nil), payload...) }) {
		t.Fatal("expected read to succeed")
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestByteRing_EmptyRecord(t *testing.T) {
	r := NewByteRing(16)
	if !r.WriteRecord(nil) {
		t.Fatal("expected write of empty payload to succeed")
	}
	called := false
	if !r.ReadRecord(func(payload []byte) {
		called = true
		if len(payload) != 0 {
			t.Fatalf("expected empty payload, got %v", payload)
		}
	}) {
		t.Fatal("expected read to succeed")
	}
	if !called {
		t.Fatal("expected callback to be invoked")
	}
}

func TestByteRing_InsufficientSpace(t *testing.T) {
	r := NewByteRing(8)
	if r.WriteRecord([]byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatal("expected write to fail: payload + header exceeds capacity")
	}
}

func TestByteRing_WrapAround(t *testing.T) {
	r := NewByteRing(16)
	for i := 0; i < 50; i++ {
		payload := []byte{byte(i), byte(i + 1)}
		if !r.WriteRecord(payload) {
			t.Fatalf("iteration %d: expected write to succeed", i)
		}
		var got []byte
		if !r.ReadRecord(func(p []byte) { got = append([]byte(nil), p...) }) {
			t.Fatalf("iteration %d: expected read to succeed", i)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("iteration %d: expected %v, got %v", i, payload, got)
		}
	}
}

func TestByteRing_ConcurrentProducerConsumer(t *testing.T) {
	r := NewByteRing(256)
	const n = 20000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			payload := []byte{byte(i), byte(i >> 8)}
			for !r.WriteRecord(payload) {
			}
		}
	}()

	go func() {
		defer wg.Done()
		count := 0
		for count < n {
			ok := r.ReadRecord(func(payload []byte) {
				expected := byte(count)
				if payload[0] != expected {
					t.Errorf("order violation at %d: got %d", count, payload[0])
				}
				count++
			})
			_ = ok
		}
	}()

	wg.Wait()
}
