// Author: momentics <momentics@gmail.com>

package frame

import (
	"bytes"
	"testing"
)

func collect(p *Parser) *[][]byte {
	frames := &[][]byte{}
	p.OnFrame = func(payload []byte) {
		dup := append([]byte(nil), payload...)
		*frames = append(*frames, dup)
	}
	return frames
}

func TestParser_SingleFrame(t *testing.T) {
	p := NewParser(1024)
	frames := collect(p)
	wire := Encode(nil, []byte("hello"))
	if !p.Feed(wire) {
		t.Fatal("expected feed to succeed")
	}
	if len(*frames) != 1 || string((*frames)[0]) != "hello" {
		t.Fatalf("unexpected frames: %v", *frames)
	}
}

func TestParser_MultipleFramesOneChunk(t *testing.T) {
	p := NewParser(1024)
	frames := collect(p)
	wire := append(Encode(nil, []byte("a")), Encode(nil, []byte("bb"))...)
	if !p.Feed(wire) {
		t.Fatal("expected feed to succeed")
	}
	if len(*frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(*frames))
	}
	if string((*frames)[0]) != "a" || string((*frames)[1]) != "bb" {
		t.Fatalf("unexpected frame contents: %q %q", (*frames)[0], (*frames)[1])
	}
}

func TestParser_FrameSpansMultipleChunks(t *testing.T) {
	p := NewParser(1024)
	frames := collect(p)
	wire := Encode(nil, bytes.Repeat([]byte{0x2A}, 1000))
	chunks := [][]byte{wire[:4], wire[4:104], wire[104:]}
	for _, c := range chunks {
		if !p.Feed(c) {
			t.Fatal("expected feed to succeed")
		}
	}
	if len(*frames) != 1 || len((*frames)[0]) != 1000 {
		t.Fatalf("expected one 1000-byte frame, got %v", *frames)
	}
	for _, b := range (*frames)[0] {
		if b != 0x2A {
			t.Fatal("expected all bytes to be 0x2A")
		}
	}
}

func TestParser_PartialHeader(t *testing.T) {
	p := NewParser(1024)
	frames := collect(p)
	wire := Encode(nil, []byte("xyz"))
	if !p.Feed(wire[:2]) {
		t.Fatal("expected feed to succeed on partial header")
	}
	if len(*frames) != 0 {
		t.Fatal("expected no frames from a partial header")
	}
	if !p.Feed(wire[2:]) {
		t.Fatal("expected feed to succeed after completing header+body")
	}
	if len(*frames) != 1 || string((*frames)[0]) != "xyz" {
		t.Fatalf("unexpected frames: %v", *frames)
	}
}

func TestParser_EmptyFrame(t *testing.T) {
	p := NewParser(1024)
	frames := collect(p)
	wire := Encode(nil, nil)
	if !p.Feed(wire) {
		t.Fatal("expected feed to succeed")
	}
	if len(*frames) != 1 || len((*frames)[0]) != 0 {
		t.Fatalf("expected one empty frame, got %v", *frames)
	}
}

func TestParser_Overflow(t *testing.T) {
	p := NewParser(10)
	var errKinds []ErrorKind
	p.OnError = func(k ErrorKind) { errKinds = append(errKinds, k) }
	collect(p)

	wire := Encode(nil, make([]byte, 11))
	if p.Feed(wire) {
		t.Fatal("expected feed to return false on overflow")
	}
	if len(errKinds) != 1 || errKinds[0] != ErrOverflow {
		t.Fatalf("expected exactly one Overflow error, got %v", errKinds)
	}
	if p.Feed([]byte{1, 2, 3}) {
		t.Fatal("expected feed to keep returning false after Errored")
	}
	if len(errKinds) != 1 {
		t.Fatal("expected no further callbacks once Errored")
	}
}

func TestParser_RoundTripMixedChunking(t *testing.T) {
	p := NewParser(4096)
	frames := collect(p)
	payloads := [][]byte{[]byte("one"), []byte("two-longer"), {}, []byte("4")}
	var wire []byte
	for _, pl := range payloads {
		wire = append(wire, Encode(nil, pl)...)
	}
	// feed in awkward 3-byte chunks
	for i := 0; i < len(wire); i += 3 {
		end := i + 3
		if end > len(wire) {
			end = len(wire)
		}
		if !p.Feed(wire[i:end]) {
			t.Fatal("expected feed to succeed")
		}
	}
	if len(*frames) != len(payloads) {
		t.Fatalf("expected %d frames, got %d", len(payloads), len(*frames))
	}
	for i, pl := range payloads {
		if !bytes.Equal((*frames)[i], pl) {
			t.Fatalf("frame %d: expected %q, got %q", i, pl, (*frames)[i])
		}
	}
}
