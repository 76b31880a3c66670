// Author: momentics <momentics@gmail.com>

package tcp

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/frame"
)

// TestTCPEcho exercises spec §8 scenario 1: a server echoes back whatever it
// receives; the client's OnReceived fires exactly once with the echoed bytes.
func TestTCPEcho(t *testing.T) {
	acceptor := NewAcceptor(AcceptorOptions{Addr: "127.0.0.1:0"})
	acceptor.OnReceived(func(ep api.Endpoint, view []byte) {
		_ = ep.Send(append([]byte(nil), view...))
	})
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	addr := acceptor.ln.Addr().String()
	client, err := Dial(context.Background(), addr, Options{})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Dispose()

	var mu sync.Mutex
	var received []byte
	done := make(chan struct{})
	client.OnReceived(func(ep api.Endpoint, view []byte) {
		mu.Lock()
		received = append([]byte(nil), view...)
		mu.Unlock()
		close(done)
	})

	payload := []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F}
	errCh := client.SendAsync(context.Background(), payload)
	if err := <-errCh; err != nil {
		t.Fatalf("send_async failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(received, payload) {
		t.Fatalf("expected %v, got %v", payload, received)
	}
}

// TestTCPChunkedArrival exercises spec §8 scenario 2: one 1000-byte frame
// split across writes of 4, 100 and 900 bytes must still arrive as one
// OnReceived.
func TestTCPChunkedArrival(t *testing.T) {
	acceptor := NewAcceptor(AcceptorOptions{Addr: "127.0.0.1:0"})
	connected := make(chan api.Endpoint, 1)
	acceptor.OnClientConnected(func(ep api.Endpoint) { connected <- ep })
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	addr := acceptor.ln.Addr().String()
	client, err := Dial(context.Background(), addr, Options{})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Dispose()

	var mu sync.Mutex
	var gotFrames int
	var lastPayload []byte
	recvDone := make(chan struct{}, 1)
	client.OnReceived(func(ep api.Endpoint, view []byte) {
		mu.Lock()
		gotFrames++
		lastPayload = append([]byte(nil), view...)
		mu.Unlock()
		recvDone <- struct{}{}
	})

	server := (<-connected).(*Endpoint)
	payload := bytes.Repeat([]byte{0x2A}, 1000)
	wire := frame.Encode(nil, payload)
	for _, chunk := range [][]byte{wire[:4], wire[4:104], wire[104:]} {
		if _, err := server.conn.Write(chunk); err != nil {
			t.Fatalf("server write failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-recvDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotFrames != 1 {
		t.Fatalf("expected exactly 1 OnReceived, got %d", gotFrames)
	}
	if len(lastPayload) != 1000 {
		t.Fatalf("expected 1000 bytes, got %d", len(lastPayload))
	}
	for _, b := range lastPayload {
		if b != 0x2A {
			t.Fatal("expected all bytes to be 0x2A")
		}
	}
}

// TestTCPPayloadTooLarge exercises spec §8 scenario 3.
func TestTCPPayloadTooLarge(t *testing.T) {
	acceptor := NewAcceptor(AcceptorOptions{
		Addr:     "127.0.0.1:0",
		Endpoint: Options{SliceSize: 64},
	})
	acceptor.OnReceived(func(ep api.Endpoint, view []byte) {
		_ = ep.Send(append([]byte(nil), view...))
	})
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	addr := acceptor.ln.Addr().String()
	client, err := Dial(context.Background(), addr, Options{SliceSize: 64})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Dispose()

	big := make([]byte, 100)
	if err := client.Send(big); api.CodeOf(err) != api.ErrCodePayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
	if client.State() == api.StateDisposed {
		t.Fatal("endpoint must remain open after a synchronous PayloadTooLarge failure")
	}

	recvDone := make(chan []byte, 1)
	client.OnReceived(func(ep api.Endpoint, view []byte) { recvDone <- append([]byte(nil), view...) })

	small := make([]byte, 10)
	for i := range small {
		small[i] = byte(i)
	}
	if err := client.Send(small); err != nil {
		t.Fatalf("expected subsequent small send to succeed, got %v", err)
	}

	select {
	case got := <-recvDone:
		if !bytes.Equal(got, small) {
			t.Fatalf("expected echoed %v, got %v", small, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo of small payload")
	}
}

func TestTCPEndpoint_DisposeIdempotent(t *testing.T) {
	acceptor := NewAcceptor(AcceptorOptions{Addr: "127.0.0.1:0"})
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	client, err := Dial(context.Background(), acceptor.ln.Addr().String(), Options{})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	var discCount int
	var mu sync.Mutex
	client.OnDisconnected(func(api.Endpoint, error) {
		mu.Lock()
		discCount++
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		_ = client.Dispose()
	}

	mu.Lock()
	defer mu.Unlock()
	if discCount != 1 {
		t.Fatalf("expected exactly 1 OnDisconnected across 5 Dispose calls, got %d", discCount)
	}
}
