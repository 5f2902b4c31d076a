package cs43l22_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/cs43l22"
)

// syncBuffer is a goroutine-safe sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return 0, b.err
	}

	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]byte(nil), b.buf.Bytes()...)
}

// countingCompleter counts completions and stops the bus after a number of halves.
type countingCompleter struct {
	mu    sync.Mutex
	order []cs43l22.Half
	limit int
	done  chan struct{}
}

func (c *countingCompleter) record(h cs43l22.Half) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = append(c.order, h)
	if len(c.order) == c.limit {
		close(c.done)
	}
}

func (c *countingCompleter) OnHalfComplete() { c.record(cs43l22.FirstHalf) }
func (c *countingCompleter) OnFullComplete() { c.record(cs43l22.SecondHalf) }

func TestClockedBusAlternatesHalves(t *testing.T) {
	sink := &syncBuffer{}
	bus := cs43l22.NewClockedBus(sink, 0, nil)

	buf := append(bytes.Repeat([]byte{1}, 4), bytes.Repeat([]byte{2}, 4)...)
	c := &countingCompleter{limit: 4, done: make(chan struct{})}
	require.NoError(t, bus.StartCircular(buf, c))

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completions")
	}
	require.NoError(t, bus.Close())

	c.mu.Lock()
	order := c.order[:4]
	c.mu.Unlock()
	assert.Equal(t, []cs43l22.Half{cs43l22.FirstHalf, cs43l22.SecondHalf, cs43l22.FirstHalf, cs43l22.SecondHalf}, order)

	out := sink.Bytes()
	require.GreaterOrEqual(t, len(out), 16)
	assert.Equal(t, append(append([]byte{}, buf...), buf...), out[:16])
	assert.GreaterOrEqual(t, bus.Halves(), uint64(4))
}

func TestClockedBusDrivesStream(t *testing.T) {
	cfg := cs43l22.DefaultConfig()
	fifo := cs43l22.NewFIFOFor(cfg, 8)
	_, err := fifo.Write(bytes.Repeat([]byte{0x10, 0x20}, cfg.HalfBytes()))
	require.NoError(t, err)

	stream, err := cs43l22.NewStream(&cfg, fifo)
	require.NoError(t, err)
	stream.SetState(cs43l22.StateStreaming)

	sink := &syncBuffer{}
	bus := cs43l22.NewClockedBus(sink, cfg.Period, nil)
	require.NoError(t, stream.Start(bus))

	assert.Eventually(t, func() bool {
		return stream.Refills() >= 4
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, bus.Close())

	out := sink.Bytes()
	require.GreaterOrEqual(t, len(out), 3*cfg.HalfBytes())

	// Both halves start silent, so the refilled audio appears from the third transmitted half.
	assert.Equal(t, make([]byte, 2*cfg.HalfBytes()), out[:2*cfg.HalfBytes()])
	assert.Equal(t, bytes.Repeat([]byte{0x10, 0x20}, cfg.HalfBytes()/2), out[2*cfg.HalfBytes():3*cfg.HalfBytes()])
}

func TestClockedBusSinkError(t *testing.T) {
	cause := errors.New("disk full")
	sink := &syncBuffer{err: cause}
	bus := cs43l22.NewClockedBus(sink, 0, nil)

	c := &countingCompleter{limit: 1, done: make(chan struct{})}
	require.NoError(t, bus.StartCircular(make([]byte, 8), c))
	bus.Wait()

	assert.ErrorIs(t, bus.Err(), cause)
	assert.Zero(t, bus.Halves())
	assert.ErrorIs(t, bus.Close(), cause)
}

func TestClockedBusInvalidStart(t *testing.T) {
	bus := cs43l22.NewClockedBus(&syncBuffer{}, 0, nil)
	c := &countingCompleter{limit: -1, done: make(chan struct{})}

	assert.Error(t, bus.StartCircular(nil, c))
	assert.Error(t, bus.StartCircular(make([]byte, 3), c))

	require.NoError(t, bus.StartCircular(make([]byte, 8), c))
	assert.Error(t, bus.StartCircular(make([]byte, 8), c), "a bus runs one transfer")

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.StartCircular(make([]byte, 8), c), cs43l22.ErrClosed)
}
