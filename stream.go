package cs43l22

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Half identifies one half of the transfer buffer.
type Half int32

const (
	FirstHalf  Half = 0
	SecondHalf Half = 1
)

// Other returns the opposite half.
func (h Half) Other() Half {
	return h ^ 1
}

func (h Half) String() string {
	if h == FirstHalf {
		return "first"
	}

	return "second"
}

// Completer receives the transfer-complete notifications of a circular transfer.
// OnHalfComplete is raised when the first half has been transmitted, OnFullComplete when the second half has.
type Completer interface {
	OnHalfComplete()
	OnFullComplete()
}

// Transmitter is the serial audio bus transfer mechanism, usually a DMA channel feeding I2S.
// StartCircular begins transmitting buf and recycles it indefinitely, notifying c at the half and full points.
// It is called at most once per buffer.
type Transmitter interface {
	StartCircular(buf []byte, c Completer) error
}

// Stream owns the double-half transfer buffer and its refill protocol.
//
// The completion notification names the half that was just transmitted, so that half becomes the refill target
// while the hardware moves on to the other one. The refill target and the half being transmitted are therefore
// always disjoint, which is what keeps the completion context from writing under the transfer.
type Stream struct {
	cfg  Config
	src  io.Reader
	half int

	mu  sync.Mutex // Guards buf against the whole-buffer clear and copy-out.
	buf []byte

	state   atomic.Int32
	target  atomic.Int32
	started atomic.Bool

	meter      *Meter
	refills    atomic.Uint64
	shortReads atomic.Uint64
	readErrors atomic.Uint64
}

// NewStream allocates the transfer buffer for cfg and binds it to the sample source src.
// A nil cfg selects DefaultConfig. The stream starts in the stopped state holding silence.
func NewStream(cfg *Config, src io.Reader) (*Stream, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if src == nil {
		return nil, fmt.Errorf("sample source cannot be nil")
	}

	s := &Stream{
		cfg:  c,
		src:  src,
		half: c.HalfBytes(),
		buf:  make([]byte, c.BufferBytes()),
	}
	s.target.Store(int32(SecondHalf))

	return s, nil
}

// Config returns the stream configuration.
func (s *Stream) Config() Config {
	return s.cfg
}

// SetMeter attaches a meter that is fed every refilled half. It must be called before Start.
func (s *Stream) SetMeter(m *Meter) {
	s.meter = m
}

// Meter returns the attached meter, or nil.
func (s *Stream) Meter() *Meter {
	return s.meter
}

// Start begins the circular transfer over the whole buffer. Only the first call reaches tx;
// later calls return nil without touching it.
func (s *Stream) Start(tx Transmitter) error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := tx.StartCircular(s.buf, s); err != nil {
		s.started.Store(false)

		return fmt.Errorf("failed to start transfer: %w", err)
	}

	return nil
}

// Started reports whether the transfer has been started.
func (s *Stream) Started() bool {
	return s.started.Load()
}

// State returns the stream state.
func (s *Stream) State() StreamState {
	return StreamState(s.state.Load())
}

// SetState changes the stream state. Switching to StateStopped zero-fills the whole buffer so the
// running transfer idles on silence and no stale audio is heard on restart.
// The transfer itself keeps running because the codec needs the serial clock to finish its mute ramp.
func (s *Stream) SetState(state StreamState) {
	if state == StateStopped {
		// Publish the state first so a concurrent refill stops reading the source.
		s.state.Store(int32(StateStopped))
		s.mu.Lock()
		clear(s.buf)
		s.mu.Unlock()

		return
	}

	s.state.Store(int32(state))
}

// OnHalfComplete implements Completer: the first half has been transmitted and is refilled.
func (s *Stream) OnHalfComplete() {
	s.target.Store(int32(FirstHalf))
	s.refill(FirstHalf)
}

// OnFullComplete implements Completer: the second half has been transmitted and is refilled.
func (s *Stream) OnFullComplete() {
	s.target.Store(int32(SecondHalf))
	s.refill(SecondHalf)
}

// Target returns the half most recently chosen as refill target.
func (s *Stream) Target() Half {
	return Half(s.target.Load())
}

// Transmitting returns the half the hardware is transmitting, the complement of Target.
func (s *Stream) Transmitting() Half {
	return s.Target().Other()
}

// refill pulls exactly one half of samples from the source into h. While stopped the source is not read, so its
// queue is neither drained nor has its cadence disturbed, and h is kept silent.
// Short reads are counted but not padded: underrun handling belongs to the source.
func (s *Stream) refill(h Half) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.buf[int(h)*s.half : (int(h)+1)*s.half]

	if s.State() == StateStopped {
		clear(dst)

		return
	}

	n, err := s.src.Read(dst)
	s.refills.Add(1)

	if err != nil {
		s.readErrors.Add(1)
	}

	if n < len(dst) {
		s.shortReads.Add(1)
	}

	if s.meter != nil {
		s.meter.Update(dst)
	}
}

// HalfBytes returns the size of one half in bytes.
func (s *Stream) HalfBytes() int {
	return s.half
}

// Buffer returns the transfer buffer itself, for a transmitter that reads it directly.
func (s *Stream) Buffer() []byte {
	return s.buf
}

// Samples returns a copy of the whole buffer.
func (s *Stream) Samples() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte(nil), s.buf...)
}

// CopyHalf copies one half of the buffer into dst and returns the number of bytes copied.
// Software transmitters use it to read the half they are transmitting.
func (s *Stream) CopyHalf(h Half, dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copy(dst, s.buf[int(h)*s.half:(int(h)+1)*s.half])
}

// Refills returns the number of source reads performed.
func (s *Stream) Refills() uint64 {
	return s.refills.Load()
}

// ShortReads returns the number of refills where the source supplied less than one half.
func (s *Stream) ShortReads() uint64 {
	return s.shortReads.Load()
}

// ReadErrors returns the number of refills where the source returned an error.
func (s *Stream) ReadErrors() uint64 {
	return s.readErrors.Load()
}
