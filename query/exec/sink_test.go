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
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func Test_SinkStagesRowsIntoChunks(t *testing.T) {
	sink, src := NewPipe(10, 2)
	for _, row := range xRows(1, 2, 3, 4, 5) {
		require.NoError(t, sink.AddRow(ctx, row))
	}
	// Two full chunks are visible, the fifth row is staged.
	c, err := src.Next(ctx)
	require.NoError(t, err)
	assertRowsEqual(t, xRows(1, 2), c.Rows)
	c, err = src.Next(ctx)
	require.NoError(t, err)
	assertRowsEqual(t, xRows(3, 4), c.Rows)
	assert.Len(t, src.buf.ch, 0)

	require.NoError(t, sink.Flush(ctx))
	c, err = src.Next(ctx)
	require.NoError(t, err)
	assertRowsEqual(t, xRows(5), c.Rows)
	// Flushing with nothing staged writes nothing.
	require.NoError(t, sink.Flush(ctx))
	assert.Len(t, src.buf.ch, 0)

	require.NoError(t, sink.Close())
	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, StreamStats{NumChunks: 3, NumBindingSets: 5}, sink.Sent())
	assert.Equal(t, StreamStats{NumChunks: 3, NumBindingSets: 5}, src.Read())
}

func Test_SinkAddFlushesStagedRowsFirst(t *testing.T) {
	sink, src := NewPipe(10, 100)
	require.NoError(t, sink.AddRow(ctx, bs(varX, 1)))
	require.NoError(t, sink.Add(ctx, Chunk{Rows: xRows(2, 3)}))
	require.NoError(t, sink.Add(ctx, Chunk{}))
	sink.Close()
	rows, err := drain(t, src)
	assert.NoError(t, err)
	assertRowsEqual(t, xRows(1, 2, 3), rows)
	assert.Equal(t, 2, src.Read().NumChunks)
}

func Test_SinkCloseIsIdempotent(t *testing.T) {
	sink, src := NewPipe(1, 1)
	assert.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
	sink.CloseWithError(errors.New("ignored"))
	assert.True(t, sink.Closed())
	_, err := src.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())
	assert.True(t, src.Closed())

	err = sink.AddRow(ctx, bs(varX, 1))
	assert.True(t, errors.Is(err, errSinkClosed))
	err = sink.Add(ctx, Chunk{Rows: xRows(1)})
	assert.True(t, errors.Is(err, errSinkClosed))
}

func Test_SinkDropsStagedRowsOnClose(t *testing.T) {
	sink, src := NewPipe(1, 10)
	require.NoError(t, sink.AddRow(ctx, bs(varX, 1)))
	sink.Close()
	rows, err := drain(t, src)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func Test_SinkCloseWithError(t *testing.T) {
	sink, src := NewPipe(4, 1)
	require.NoError(t, sink.AddRow(ctx, bs(varX, 1)))
	failure := errors.New("scan failed")
	sink.CloseWithError(failure)
	// Chunks written before the error are still read.
	rows, err := drain(t, src)
	assertRowsEqual(t, xRows(1), rows)
	var resErr *ResourceError
	if assert.True(t, errors.As(err, &resErr)) {
		assert.True(t, resErr.Derived)
		assert.Equal(t, "read", resErr.Op)
	}
	assert.True(t, errors.Is(err, failure))
	assert.True(t, isDerived(err))
}

func Test_SinkBackpressure(t *testing.T) {
	defer goleak.VerifyNone(t)
	sink, src := NewPipe(2, 1)
	require.NoError(t, sink.AddRow(ctx, bs(varX, 1)))
	require.NoError(t, sink.AddRow(ctx, bs(varX, 2)))
	added := make(chan error)
	go func() {
		added <- sink.AddRow(ctx, bs(varX, 3))
	}()
	select {
	case <-added:
		t.Fatal("AddRow should block while the stream is full")
	case <-time.After(20 * time.Millisecond):
	}
	c, err := src.Next(ctx)
	require.NoError(t, err)
	assertRowsEqual(t, xRows(1), c.Rows)
	assert.NoError(t, <-added)
	sink.Close()
	rows, err := drain(t, src)
	assert.NoError(t, err)
	assertRowsEqual(t, xRows(2, 3), rows)
}

func Test_SinkCanceledWhileBlocked(t *testing.T) {
	defer goleak.VerifyNone(t)
	sink, src := NewPipe(1, 1)
	defer src.Close()
	require.NoError(t, sink.AddRow(ctx, bs(varX, 1)))
	cctx, cancel := context.WithCancel(ctx)
	added := make(chan error)
	go func() {
		added <- sink.AddRow(cctx, bs(varX, 2))
	}()
	cancel()
	err := <-added
	var cancelErr *CancellationError
	assert.True(t, errors.As(err, &cancelErr))
	assert.True(t, errors.Is(err, context.Canceled))
	sink.Close()
}

func Test_SinkAbandonedByConsumers(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := newBuffer(1)
	sink := b.newSink(1, nil, false)
	src1 := b.newSource(nil)
	src2 := b.newSource(nil)
	require.NoError(t, sink.AddRow(ctx, bs(varX, 1)))
	added := make(chan error)
	go func() {
		added <- sink.AddRow(ctx, bs(varX, 2))
	}()
	src1.Close()
	select {
	case <-added:
		t.Fatal("one consumer remains, AddRow should still block")
	case <-time.After(20 * time.Millisecond):
	}
	src2.Close()
	err := <-added
	assert.True(t, isConsumerGone(err))
	assert.True(t, isDerived(err))
	// Further writes fail straight away.
	err = sink.Add(ctx, Chunk{Rows: xRows(3)})
	assert.True(t, isConsumerGone(err))
	sink.Close()
}

func Test_StreamEndsWhenLastProducerCloses(t *testing.T) {
	b := newBuffer(10)
	sink1 := b.newSink(1, nil, false)
	sink2 := b.newSink(1, nil, false)
	src := b.newSource(nil)
	require.NoError(t, sink1.AddRow(ctx, bs(varX, 1)))
	sink1.Close()
	require.NoError(t, sink2.AddRow(ctx, bs(varX, 2)))
	c, err := src.Next(ctx)
	require.NoError(t, err)
	assertRowsEqual(t, xRows(1), c.Rows)
	c, err = src.Next(ctx)
	require.NoError(t, err)
	assertRowsEqual(t, xRows(2), c.Rows)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = src.Next(cctx)
	var cancelErr *CancellationError
	assert.True(t, errors.As(err, &cancelErr), "stream should still be open: %v", err)

	sink2.Close()
	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func Test_DiscardSink(t *testing.T) {
	stats := new(OpStats)
	sink := discardSink(2, stats, true)
	for _, row := range xRows(1, 2, 3) {
		require.NoError(t, sink.AddRow(ctx, row))
	}
	require.NoError(t, sink.Flush(ctx))
	sink.Close()
	assert.Equal(t, StreamStats{NumChunks: 2, NumBindingSets: 3}, sink.Sent())
	assert.Equal(t, StatsSnapshot{AltChunksOut: 2, AltUnitsOut: 3}, stats.Snapshot())
}

func Test_EmptySource(t *testing.T) {
	src := emptySource()
	_, err := src.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, src.Close())
}

func Test_OpStats(t *testing.T) {
	stats := new(OpStats)
	stats.addInvocation()
	stats.addIn(5)
	stats.addIn(3)
	stats.addOut(false, 2)
	stats.addOut(true, 6)
	snap := stats.Snapshot()
	assert.Equal(t, StatsSnapshot{
		Invocations:  1,
		ChunksIn:     2,
		UnitsIn:      8,
		ChunksOut:    1,
		UnitsOut:     2,
		AltChunksOut: 1,
		AltUnitsOut:  6,
	}, snap)
	assert.Equal(t, "invocations=1 in=2/8 out=1/2 alt=1/6", snap.String())
	assert.Equal(t, "invocations=0 in=0/0 out=0/0", StatsSnapshot{}.String())
}
