// File: frame/parser.go
// Package frame implements the length-prefixed stream framing (spec §3, §4.C,
// §6): a 4-byte little-endian length L followed by L bytes of payload.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the incremental-decode shape of the teacher's
// protocol/frame_codec.go (DecodeFrameFromBytes returning a nil frame on a
// short buffer rather than erroring), re-targeted from WebSocket framing to
// the plain length-prefix wire format this spec defines.

package frame

import "encoding/binary"

// ErrorKind enumerates parser failure reasons.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrOverflow
)

type state int

const (
	stateNeedHeader state = iota
	stateNeedBody
	stateErrored
)

const headerSize = 4

// Parser accumulates bytes fed via Feed and emits complete frames through
// OnFrame. OnFrame's view aliases the parser's scratch buffer and is valid
// only for the duration of the call; a consumer that needs to retain it must
// copy. MaxFrame bounds the largest acceptable payload.
type Parser struct {
	MaxFrame int
	OnFrame  func(payload []byte)
	OnError  func(kind ErrorKind)

	state   state
	scratch []byte // accumulated bytes for the header or the current body
	needed  int    // bytes remaining to complete the current header/body
	bodyLen int    // length of the body currently being accumulated
}

// NewParser constructs a parser bounded to maxFrame bytes of payload.
func NewParser(maxFrame int) *Parser {
	return &Parser{
		MaxFrame: maxFrame,
		scratch:  make([]byte, 0, headerSize),
		needed:   headerSize,
	}
}

// Feed appends bytes to the parser, dispatching OnFrame for each complete
// frame and OnError on protocol violation. Returns false once the parser has
// entered the Errored state (including the call in which the overflow is
// detected); no further callbacks fire on subsequent calls.
func (p *Parser) Feed(b []byte) bool {
	if p.state == stateErrored {
		return false
	}
	for len(b) > 0 {
		switch p.state {
		case stateNeedHeader:
			take := p.needed
			if take > len(b) {
				take = len(b)
			}
			p.scratch = append(p.scratch, b[:take]...)
			b = b[take:]
			p.needed -= take
			if p.needed > 0 {
				continue
			}
			length := int(binary.LittleEndian.Uint32(p.scratch))
			p.scratch = p.scratch[:0]
			if length > p.MaxFrame {
				p.state = stateErrored
				if p.OnError != nil {
					p.OnError(ErrOverflow)
				}
				return false
			}
			if length == 0 {
				if p.OnFrame != nil {
					p.OnFrame(p.scratch[:0])
				}
				p.needed = headerSize
				continue
			}
			p.bodyLen = length
			p.needed = length
			p.state = stateNeedBody

		case stateNeedBody:
			take := p.needed
			if take > len(b) {
				take = len(b)
			}
			p.scratch = append(p.scratch, b[:take]...)
			b = b[take:]
			p.needed -= take
			if p.needed > 0 {
				continue
			}
			if p.OnFrame != nil {
				p.OnFrame(p.scratch[:p.bodyLen])
			}
			p.scratch = p.scratch[:0]
			p.needed = headerSize
			p.state = stateNeedHeader
		}
	}
	return true
}

// Reset returns the parser to its initial NeedHeader state, discarding any
// partially accumulated frame. Useful for reusing a Parser across connections.
func (p *Parser) Reset() {
	p.state = stateNeedHeader
	p.scratch = p.scratch[:0]
	p.needed = headerSize
	p.bodyLen = 0
}

// Encode writes the 4-byte little-endian length prefix for payload into dst
// followed by payload itself, returning the full frame. dst may be nil; its
// backing array is reused if it has enough capacity.
func Encode(dst []byte, payload []byte) []byte {
	dst = append(dst[:0], 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}
