// Author: momentics <momentics@gmail.com>

package inproc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/momentics/xtransport/api"
)

func testOptions(t *testing.T) Options {
	return Options{
		Name:              fmt.Sprintf("test-%d", time.Now().UnixNano()),
		MaxClients:        4,
		RingCapacity:      4096,
		HeartbeatInterval: 10 * time.Millisecond,
		HeartbeatTimeout:  100 * time.Millisecond,
	}
}

func TestInprocRoundTrip(t *testing.T) {
	opts := testOptions(t)
	acceptor := NewAcceptor(opts)
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	serverGot := make(chan []byte, 1)
	connected := make(chan api.Endpoint, 1)
	acceptor.OnClientConnected(func(ep api.Endpoint) { connected <- ep })
	acceptor.OnReceived(func(ep api.Endpoint, view []byte) {
		serverGot <- append([]byte(nil), view...)
	})

	client, err := Dial(context.Background(), opts)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Dispose()

	clientGot := make(chan []byte, 1)
	client.OnReceived(func(ep api.Endpoint, view []byte) {
		clientGot <- append([]byte(nil), view...)
	})

	if err := client.Send([]byte("ping")); err != nil {
		t.Fatalf("client send failed: %v", err)
	}

	select {
	case got := <-serverGot:
		if string(got) != "ping" {
			t.Fatalf("expected ping, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive")
	}

	var peer api.Endpoint
	select {
	case peer = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnClientConnected")
	}

	if err := peer.Send([]byte("pong")); err != nil {
		t.Fatalf("server send failed: %v", err)
	}

	select {
	case got := <-clientGot:
		if string(got) != "pong" {
			t.Fatalf("expected pong, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client to receive")
	}
}

func TestInprocNoServer(t *testing.T) {
	opts := testOptions(t)
	_, err := Dial(context.Background(), opts)
	if api.CodeOf(err) != api.ErrCodeConnectionFailed {
		t.Fatalf("expected ConnectionFailed, got %v", err)
	}
}

func TestInprocHeartbeatTimeoutEviction(t *testing.T) {
	opts := testOptions(t)
	acceptor := NewAcceptor(opts)
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	var mu sync.Mutex
	var disconnected bool
	acceptor.OnClientDisconnected(func(api.Endpoint, error) {
		mu.Lock()
		disconnected = true
		mu.Unlock()
	})

	client, err := Dial(context.Background(), opts)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(acceptor.Snapshot()) == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if len(acceptor.Snapshot()) != 1 {
		t.Fatal("server never discovered client")
	}

	close(client.stopCh) // simulate a crashed client

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		d := disconnected
		mu.Unlock()
		if d {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !disconnected {
		t.Fatal("expected OnClientDisconnected after heartbeat timeout")
	}
}

func TestInprocPayloadTooLarge(t *testing.T) {
	opts := testOptions(t)
	opts.RingCapacity = 64
	acceptor := NewAcceptor(opts)
	if err := acceptor.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer acceptor.Dispose()

	client, err := Dial(context.Background(), opts)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Dispose()

	big := make([]byte, 128)
	if err := client.Send(big); api.CodeOf(err) != api.ErrCodePayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
}
