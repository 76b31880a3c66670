// Author: momentics <momentics@gmail.com>

package reconnect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momentics/xtransport/api"
)

// fakeEndpoint is a minimal api.Endpoint test double whose disconnect can be
// triggered on demand, and whose Dispose is observable.
type fakeEndpoint struct {
	mu             sync.Mutex
	onDisconnected api.DisconnectedFunc
	onReceived     api.ReceivedFunc
	disposed       bool
}

var _ api.Endpoint = (*fakeEndpoint)(nil)

func (f *fakeEndpoint) Backend() api.Backend { return api.BackendTCP }
func (f *fakeEndpoint) State() api.State     { return api.StateStarted }
func (f *fakeEndpoint) OnReceived(fn api.ReceivedFunc) {
	f.mu.Lock()
	f.onReceived = fn
	f.mu.Unlock()
}
func (f *fakeEndpoint) OnConnected(api.ConnectedFunc) {}
func (f *fakeEndpoint) OnDisconnected(fn api.DisconnectedFunc) {
	f.mu.Lock()
	f.onDisconnected = fn
	f.mu.Unlock()
}
func (f *fakeEndpoint) Send(payload []byte) error { return nil }
func (f *fakeEndpoint) SendAsync(ctx context.Context, payload []byte) <-chan error {
	ch := make(chan error, 1)
	ch <- nil
	return ch
}
func (f *fakeEndpoint) Dispose() error {
	f.mu.Lock()
	f.disposed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeEndpoint) triggerDisconnect(cause error) {
	f.mu.Lock()
	fn := f.onDisconnected
	f.mu.Unlock()
	if fn != nil {
		fn(f, cause)
	}
}

func TestWrapperConnectsAndForwardsSend(t *testing.T) {
	ep := &fakeEndpoint{}
	dialCount := 0
	var mu sync.Mutex
	dial := func(ctx context.Context) (api.Endpoint, error) {
		mu.Lock()
		dialCount++
		mu.Unlock()
		return ep, nil
	}

	connected := make(chan struct{}, 1)
	w := New(context.Background(), dial, Options{})
	w.OnConnected(func(api.Endpoint) { connected <- struct{}{} })
	defer w.Dispose()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial connect")
	}

	if w.Status() != StatusConnected {
		t.Fatalf("expected StatusConnected, got %v", w.Status())
	}
	if err := w.Send([]byte("x")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func TestWrapperReconnectsAfterDisconnect(t *testing.T) {
	var mu sync.Mutex
	var endpoints []*fakeEndpoint
	dial := func(ctx context.Context) (api.Endpoint, error) {
		ep := &fakeEndpoint{}
		mu.Lock()
		endpoints = append(endpoints, ep)
		mu.Unlock()
		return ep, nil
	}

	connectCount := 0
	connected := make(chan struct{}, 8)
	w := New(context.Background(), dial, Options{Base: 5 * time.Millisecond, Max: 20 * time.Millisecond})
	w.OnConnected(func(api.Endpoint) {
		mu.Lock()
		connectCount++
		mu.Unlock()
		connected <- struct{}{}
	})
	defer w.Dispose()

	<-connected // first connect

	mu.Lock()
	first := endpoints[0]
	mu.Unlock()
	first.triggerDisconnect(errors.New("peer reset"))

	select {
	case <-connected: // reconnect
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reconnect")
	}

	mu.Lock()
	defer mu.Unlock()
	if connectCount != 2 {
		t.Fatalf("expected 2 connects, got %d", connectCount)
	}
	if len(endpoints) != 2 {
		t.Fatalf("expected a fresh Endpoint per connect, got %d", len(endpoints))
	}
}

// TestWrapperBackoffTiming exercises spec §8 scenario 6: repeated dial
// failures back off as min(base*2^(attempt-1), max) for 1-indexed attempts.
func TestWrapperBackoffTiming(t *testing.T) {
	opts := Options{Base: 20 * time.Millisecond, Max: 200 * time.Millisecond}
	for attempt, want := range map[int]time.Duration{
		1: 20 * time.Millisecond,
		2: 40 * time.Millisecond,
		3: 80 * time.Millisecond,
		4: 160 * time.Millisecond,
		5: 200 * time.Millisecond, // capped
		6: 200 * time.Millisecond,
	} {
		if got := backoffDelay(opts, attempt); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestWrapperDisposeIdempotent(t *testing.T) {
	ep := &fakeEndpoint{}
	dial := func(ctx context.Context) (api.Endpoint, error) { return ep, nil }
	w := New(context.Background(), dial, Options{})

	for i := 0; i < 5; i++ {
		if err := w.Dispose(); err != nil {
			t.Fatalf("dispose failed: %v", err)
		}
	}
	if w.Status() != StatusDisposed {
		t.Fatalf("expected StatusDisposed, got %v", w.Status())
	}
}

func TestWrapperDisposeDuringBackoffStopsLoop(t *testing.T) {
	dial := func(ctx context.Context) (api.Endpoint, error) {
		return nil, errors.New("connection refused")
	}
	w := New(context.Background(), dial, Options{Base: 50 * time.Millisecond, Max: time.Second})
	time.Sleep(10 * time.Millisecond) // ensure the loop is mid-backoff
	done := make(chan struct{})
	go func() {
		w.Dispose()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispose did not return promptly while dialing was failing")
	}
}
