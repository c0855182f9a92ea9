// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package exec

import (
	"context"
	"io"
	"sync"
)

// ChunkProducer is a pull-based, closable stream of chunks. Next returns
// io.EOF once the stream has ended. Source implements ChunkProducer, and Scan
// plan nodes read from externally supplied ChunkProducers.
type ChunkProducer interface {
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

// buffer is the bounded queue of chunks between the producers writing to a
// stream and the consumers reading from it. Each producer holds a Sink and
// each consumer holds a Source. The stream ends once every Sink has been
// closed, and is abandoned once every Source has been closed.
type buffer struct {
	ch        chan Chunk
	abandoned chan struct{}
	lock      sync.Mutex
	// The following are protected by lock.
	producers int
	consumers int
	// The first error a producer closed its Sink with.
	err error
}

func newBuffer(capacity int) *buffer {
	if capacity <= 0 {
		capacity = DefaultSinkCapacity
	}
	return &buffer{
		ch:        make(chan Chunk, capacity),
		abandoned: make(chan struct{}),
	}
}

// newSink registers a new producer. All producers must be registered before
// any of them closes.
func (b *buffer) newSink(chunkCapacity int, stats *OpStats, alt bool) *Sink {
	b.lock.Lock()
	b.producers++
	b.lock.Unlock()
	return newSink(b, chunkCapacity, stats, alt)
}

// newSource registers a new consumer. All consumers must be registered before
// any of them closes.
func (b *buffer) newSource(stats *OpStats) *Source {
	b.lock.Lock()
	b.consumers++
	b.lock.Unlock()
	return &Source{buf: b, stats: stats}
}

func (b *buffer) producerDone(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err != nil && b.err == nil {
		b.err = err
	}
	b.producers--
	if b.producers == 0 {
		close(b.ch)
	}
}

func (b *buffer) consumerDone() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.consumers--
	if b.consumers == 0 {
		close(b.abandoned)
	}
}

func (b *buffer) failure() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.err
}

// NewPipe returns the two ends of a new stream with a single producer and a
// single consumer. The Sink stages rows into chunks of chunkCapacity binding
// sets, and blocks once sinkCapacity chunks are waiting to be read. Zero for
// either capacity uses the default.
func NewPipe(sinkCapacity, chunkCapacity int) (*Sink, *Source) {
	b := newBuffer(sinkCapacity)
	return b.newSink(chunkCapacity, nil, false), b.newSource(nil)
}

// Sink is the writing end of a stream. A Sink is used by a single goroutine;
// many Sinks may write to the same stream concurrently.
type Sink struct {
	// If nil, written chunks are counted and then discarded.
	buf           *buffer
	chunkCapacity int
	stats         *OpStats
	alt           bool
	staged        []BindingSet
	closed        bool
	sent          StreamStats
}

func newSink(buf *buffer, chunkCapacity int, stats *OpStats, alt bool) *Sink {
	if chunkCapacity <= 0 {
		chunkCapacity = DefaultChunkCapacity
	}
	return &Sink{
		buf:           buf,
		chunkCapacity: chunkCapacity,
		stats:         stats,
		alt:           alt,
	}
}

// discardSink returns a Sink for an output that nothing consumes.
func discardSink(chunkCapacity int, stats *OpStats, alt bool) *Sink {
	return newSink(nil, chunkCapacity, stats, alt)
}

// Add writes the chunk to the stream, after any staged rows. It blocks while
// the stream is full. Empty chunks are ignored.
//
// Once every consumer has gone away, Add returns a derived ResourceError;
// the producer should stop producing. If ctx is done, it returns a
// CancellationError.
func (s *Sink) Add(ctx context.Context, chunk Chunk) error {
	if s.closed {
		return &ResourceError{Op: "write", Err: errSinkClosed}
	}
	if len(chunk.Rows) == 0 {
		return nil
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	return s.send(ctx, chunk)
}

// AddRow stages a single binding set. Once a full chunk of rows is staged,
// they're written to the stream as one chunk.
func (s *Sink) AddRow(ctx context.Context, row BindingSet) error {
	if s.closed {
		return &ResourceError{Op: "write", Err: errSinkClosed}
	}
	s.staged = append(s.staged, row)
	if len(s.staged) >= s.chunkCapacity {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes any staged rows to the stream as a chunk, so that consumers
// can see them without waiting for more rows or for the Sink to be closed.
func (s *Sink) Flush(ctx context.Context) error {
	if s.closed {
		return &ResourceError{Op: "write", Err: errSinkClosed}
	}
	if len(s.staged) == 0 {
		return nil
	}
	chunk := Chunk{Rows: s.staged}
	s.staged = make([]BindingSet, 0, s.chunkCapacity)
	return s.send(ctx, chunk)
}

func (s *Sink) send(ctx context.Context, chunk Chunk) error {
	if s.buf != nil {
		select {
		case <-s.buf.abandoned:
			return &ResourceError{Op: "write", Err: errConsumerGone, Derived: true}
		default:
		}
		select {
		case s.buf.ch <- chunk:
		case <-s.buf.abandoned:
			return &ResourceError{Op: "write", Err: errConsumerGone, Derived: true}
		case <-ctx.Done():
			return &CancellationError{Err: ctx.Err()}
		}
	}
	s.sent.NumChunks++
	s.sent.NumBindingSets += len(chunk.Rows)
	if s.stats != nil {
		s.stats.addOut(s.alt, len(chunk.Rows))
	}
	return nil
}

// Close ends this producer's part of the stream. Staged rows that were not
// flushed are discarded. Close may be called more than once.
func (s *Sink) Close() error {
	s.CloseWithError(nil)
	return nil
}

// CloseWithError is like Close, but consumers will see the error once they've
// read all the chunks written to the stream.
func (s *Sink) CloseWithError(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.staged = nil
	if s.buf != nil {
		s.buf.producerDone(err)
	}
}

// Closed returns true once Close or CloseWithError has been called.
func (s *Sink) Closed() bool {
	return s.closed
}

// Sent returns the number of chunks and binding sets written to the stream.
func (s *Sink) Sent() StreamStats {
	return s.sent
}

// Source is the reading end of a stream. A Source is used by a single
// goroutine; many Sources may read from the same stream concurrently, in which
// case each chunk is read by exactly one of them.
type Source struct {
	// If nil, the source is empty.
	buf    *buffer
	stats  *OpStats
	closed bool
	read   StreamStats
}

// emptySource returns a Source that has no chunks.
func emptySource() *Source {
	return &Source{}
}

// Next returns the next chunk from the stream. It blocks until one is
// available. It returns io.EOF after the last chunk, or a derived
// ResourceError if a producer closed the stream with an error.
func (s *Source) Next(ctx context.Context) (Chunk, error) {
	if s.closed || s.buf == nil {
		return Chunk{}, io.EOF
	}
	select {
	case chunk, open := <-s.buf.ch:
		if !open {
			if err := s.buf.failure(); err != nil {
				return Chunk{}, &ResourceError{Op: "read", Err: err, Derived: true}
			}
			return Chunk{}, io.EOF
		}
		s.read.NumChunks++
		s.read.NumBindingSets += len(chunk.Rows)
		if s.stats != nil {
			s.stats.addIn(len(chunk.Rows))
		}
		return chunk, nil
	case <-ctx.Done():
		return Chunk{}, &CancellationError{Err: ctx.Err()}
	}
}

// Close stops this consumer from reading the stream. Once every consumer has
// closed, producers stop producing. Close may be called more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.buf != nil {
		s.buf.consumerDone()
	}
	return nil
}

// Closed returns true once Close has been called.
func (s *Source) Closed() bool {
	return s.closed
}

// Read returns the number of chunks and binding sets read from the stream.
func (s *Source) Read() StreamStats {
	return s.read
}
