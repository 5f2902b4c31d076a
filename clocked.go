package cs43l22

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned when a closed transmitter is started.
var ErrClosed = errors.New("transmitter closed")

// HalfCopier is implemented by completers that guard their buffer, such as *Stream.
// ClockedBus uses it instead of reading the buffer directly.
type HalfCopier interface {
	CopyHalf(h Half, dst []byte) int
}

// ClockedBus is a software Transmitter. It stands in for the DMA channel and serial audio bus by writing one half
// of the circular buffer to a sink every period and raising the matching completion, paced by a ticker.
type ClockedBus struct {
	sink   io.Writer
	period time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	done    chan struct{}
	stopped chan struct{}
	err     error
	halves  uint64
}

// NewClockedBus creates a transmitter writing to sink, one half per period.
// A zero period sends halves as fast as the sink accepts them.
func NewClockedBus(sink io.Writer, period time.Duration, l *slog.Logger) *ClockedBus {
	return &ClockedBus{
		sink:   sink,
		period: period,
		log:    componentLogger(l, ComponentBus),
	}
}

// StartCircular implements Transmitter.
func (b *ClockedBus) StartCircular(buf []byte, c Completer) error {
	if len(buf) == 0 || len(buf)%2 != 0 {
		return fmt.Errorf("invalid buffer length %d", len(buf))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	if b.running {
		return fmt.Errorf("transfer already running")
	}

	b.running = true
	b.done = make(chan struct{})
	b.stopped = make(chan struct{})

	go b.run(buf, c)

	b.log.Debug("circular transfer started", "bytes", len(buf), "period", b.period)

	return nil
}

func (b *ClockedBus) run(buf []byte, c Completer) {
	defer close(b.stopped)

	halfLen := len(buf) / 2
	out := make([]byte, halfLen)
	copier, guarded := c.(HalfCopier)

	var tick <-chan time.Time
	if b.period > 0 {
		ticker := time.NewTicker(b.period)
		defer ticker.Stop()
		tick = ticker.C
	}

	h := FirstHalf
	for {
		if tick != nil {
			select {
			case <-b.done:
				return
			case <-tick:
			}
		} else {
			select {
			case <-b.done:
				return
			default:
			}
		}

		if guarded {
			copier.CopyHalf(h, out)
		} else {
			copy(out, buf[int(h)*halfLen:(int(h)+1)*halfLen])
		}

		if _, err := b.sink.Write(out); err != nil {
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
			b.log.Error("sink write failed", "error", err)

			return
		}

		b.mu.Lock()
		b.halves++
		b.mu.Unlock()

		if h == FirstHalf {
			c.OnHalfComplete()
		} else {
			c.OnFullComplete()
		}

		h = h.Other()
	}
}

// Halves returns the number of halves transmitted so far.
func (b *ClockedBus) Halves() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.halves
}

// Err returns the sink error that ended the transfer, if any.
func (b *ClockedBus) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.err
}

// Wait blocks until the transfer goroutine exits. It returns immediately if the transfer never started.
func (b *ClockedBus) Wait() {
	b.mu.Lock()
	stopped := b.stopped
	b.mu.Unlock()

	if stopped != nil {
		<-stopped
	}
}

// Close stops the transfer and waits for the last completion to return.
func (b *ClockedBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return nil
	}
	b.closed = true
	running := b.running
	b.mu.Unlock()

	if running {
		close(b.done)
		b.Wait()
	}

	return b.Err()
}
