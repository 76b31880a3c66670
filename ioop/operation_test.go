// Author: momentics <momentics@gmail.com>

package ioop

import (
	"net"
	"testing"
)

func TestOperation_SubmitSendReceive(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sendOp := &Operation{Conn: client, Kind: KindSend, Window: []byte("hi")}
	done := make(chan struct{})
	sendOp.Completion = func(n int, err error) {
		if err != nil {
			t.Errorf("unexpected send error: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 bytes written, got %d", n)
		}
		close(done)
	}
	go sendOp.Submit()

	recvBuf := make([]byte, 16)
	recvOp := &Operation{Conn: server, Kind: KindReceive, Window: recvBuf}
	recvDone := make(chan struct{})
	recvOp.Completion = func(n int, err error) {
		if err != nil {
			t.Errorf("unexpected recv error: %v", err)
		}
		if string(recvBuf[:n]) != "hi" {
			t.Errorf("expected 'hi', got %q", recvBuf[:n])
		}
		close(recvDone)
	}
	recvOp.Submit()
	<-recvDone
	<-done
}

func TestOperation_ResetRestoresWindow(t *testing.T) {
	buf := make([]byte, 64)
	op := &Operation{Window: buf[:10], Token: "x"}
	op.Buf.Data = buf
	op.Reset()
	if len(op.Window) != len(buf) {
		t.Fatalf("expected window restored to %d bytes, got %d", len(buf), len(op.Window))
	}
	if op.Token != nil {
		t.Fatal("expected token cleared on reset")
	}
}

func TestPool_GetPutReuse(t *testing.T) {
	created := 0
	p := NewPool(func() *Operation {
		created++
		return &Operation{}
	})

	op1 := p.Get()
	if created != 1 {
		t.Fatalf("expected 1 operation created, got %d", created)
	}
	p.Put(op1)

	op2 := p.Get()
	if created != 1 {
		t.Fatal("expected Get to reuse the returned operation instead of creating a new one")
	}
	if op1 != op2 {
		t.Fatal("expected the same operation instance to be reused")
	}
}

func TestPool_SequentialBurst(t *testing.T) {
	p := NewPool(func() *Operation { return &Operation{} })
	const n = 64
	ops := make([]*Operation, n)
	for i := range ops {
		ops[i] = p.Get()
	}
	for _, op := range ops {
		p.Put(op)
	}
	seen := make(map[*Operation]bool)
	for i := 0; i < n; i++ {
		op := p.Get()
		seen[op] = true
	}
	if len(seen) == 0 {
		t.Fatal("expected operations to be handed out")
	}
}
