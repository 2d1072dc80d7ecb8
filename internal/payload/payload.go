// Package payload implements BufferedPayload: the ordered chain of
// fixed-size 64 KiB chunks that backs the in-memory payload of one .maus
// entry. A payload is append-only while writing, one-way reset to a
// single-pass readable stream, and supports zero-copy splicing between
// pipeline stages.
package payload

import (
	"io"

	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/util"
)

type state int

const (
	stateWriting state = iota
	stateReading
	stateClosed
)

// chunk is one fixed-size link in the payload chain. data is always
// util.ChunkSize bytes; end marks how much of it is populated.
type chunk struct {
	data []byte
	end  int
	next *chunk
}

// BufferedPayload is a singly linked chain of util.ChunkSize chunks. The
// zero value is not usable; construct one with New. Not safe for concurrent
// use: a single BufferedPayload is never accessed from more than one
// goroutine at a time, matching the single-threaded-per-codec model of the
// stream codec it backs.
type BufferedPayload struct {
	state state

	head, tail *chunk
	length     int64

	onFinish func(int64)
	finished bool

	readChunk *chunk
	readPos   int
}

// New returns an empty BufferedPayload in the writing state.
func New() *BufferedPayload {
	return &BufferedPayload{state: stateWriting}
}

// Len returns the number of bytes written so far (or, once reset, the total
// size of the readable stream).
func (p *BufferedPayload) Len() int64 {
	return p.length
}

// Append writes b to the chain, allocating new chunks as needed. Valid only
// in the writing state.
func (p *BufferedPayload) Append(b []byte) error {
	if p.state != stateWriting {
		return streamerr.Wrap(streamerr.ErrInvalidState, "payload append outside writing state")
	}
	for len(b) > 0 {
		if p.tail == nil || p.tail.end == util.ChunkSize {
			p.pushChunk()
		}
		n := copy(p.tail.data[p.tail.end:], b)
		p.tail.end += n
		p.length += int64(n)
		b = b[n:]
	}
	return nil
}

func (p *BufferedPayload) pushChunk() {
	c := &chunk{data: util.GetChunkBuffer()}
	if p.head == nil {
		p.head = c
	} else {
		p.tail.next = c
	}
	p.tail = c
}

// OnFinish registers a callback fired at most once, when Reset transitions
// the payload out of the writing state. The callback receives the final
// total length.
func (p *BufferedPayload) OnFinish(cb func(total int64)) {
	p.onFinish = cb
}

// Reset performs the one-way writing -> reading transition, rewinding the
// read cursor to the start of the chain and firing the on-finish callback
// (if any) exactly once.
func (p *BufferedPayload) Reset() error {
	if p.state != stateWriting {
		return streamerr.Wrap(streamerr.ErrInvalidState, "payload reset outside writing state")
	}
	p.state = stateReading
	p.readChunk = p.head
	p.readPos = 0
	if !p.finished {
		p.finished = true
		if p.onFinish != nil {
			p.onFinish(p.length)
		}
	}
	return nil
}

// Read advances the cursor and copies into buf, implementing io.Reader:
// n is the number of bytes copied and err is io.EOF once the chain is
// exhausted. Valid only in the reading state.
func (p *BufferedPayload) Read(buf []byte) (int, error) {
	if p.state != stateReading {
		return 0, streamerr.Wrap(streamerr.ErrInvalidState, "payload read outside reading state")
	}
	total := 0
	for total < len(buf) {
		if p.readChunk == nil {
			if total == 0 {
				return 0, io.EOF
			}
			return total, nil
		}
		available := p.readChunk.end - p.readPos
		if available == 0 {
			p.readChunk = p.readChunk.next
			p.readPos = 0
			continue
		}
		n := copy(buf[total:], p.readChunk.data[p.readPos:p.readChunk.end])
		p.readPos += n
		total += n
	}
	return total, nil
}

// SpliceInto moves this chain's chunks onto the end of other's chain and
// invalidates this payload. Byte order is preserved. When other is empty,
// or its tail chunk is exactly full (util.ChunkSize), the splice is O(1);
// otherwise every chunk of this payload is copied onto other's chain, so
// no short chunk sits in the middle of it.
func (p *BufferedPayload) SpliceInto(other *BufferedPayload) error {
	if p.state != stateWriting || other.state != stateWriting {
		return streamerr.Wrap(streamerr.ErrInvalidState, "splice requires both payloads in writing state")
	}
	if p.head == nil {
		p.state = stateClosed
		return nil
	}
	if other.tail == nil {
		other.head = p.head
		other.tail = p.tail
		other.length += p.length
	} else if other.tail.end == util.ChunkSize {
		other.tail.next = p.head
		other.tail = p.tail
		other.length += p.length
	} else {
		// Boundary-unaligned: fold chunks across the join by re-appending
		// through Append, which already handles partial-chunk packing.
		for c := p.head; c != nil; c = c.next {
			if err := other.Append(c.data[:c.end]); err != nil {
				return err
			}
		}
		p.releaseChain()
	}
	p.head, p.tail = nil, nil
	p.length = 0
	p.state = stateClosed
	return nil
}

// Close releases every chunk back to the shared pool. Safe to call more
// than once, and required on cancellation per the resource model: dropping
// a payload mid-write must release all buffers immediately.
func (p *BufferedPayload) Close() {
	p.releaseChain()
	p.head, p.tail, p.readChunk = nil, nil, nil
	p.state = stateClosed
}

func (p *BufferedPayload) releaseChain() {
	for c := p.head; c != nil; {
		next := c.next
		util.PutChunkBuffer(c.data)
		c = next
	}
}
