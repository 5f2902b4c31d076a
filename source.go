package cs43l22

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
)

// FIFO is a bounded byte queue between the USB audio class stack, which writes received packets, and the stream,
// which reads one half per refill. Read always fills the whole request: on underrun the missing bytes are
// zero-filled and counted, so the stream never sees a short read. Writes beyond capacity drop the oldest data.
type FIFO struct {
	mu       sync.Mutex
	data     []byte
	readPos  int
	size     int
	closed   bool
	underrun atomic.Uint64
	overrun  atomic.Uint64
}

// NewFIFO creates a FIFO holding up to capacity bytes, at least one.
func NewFIFO(capacity int) *FIFO {
	return &FIFO{data: make([]byte, max(capacity, 1))}
}

// NewFIFOFor sizes a FIFO to hold periods refill periods of cfg.
func NewFIFOFor(cfg Config, periods int) *FIFO {
	return NewFIFO(cfg.HalfBytes() * periods)
}

// Write queues p. It never blocks.
func (f *FIFO) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, io.ErrClosedPipe
	}

	n := len(p)
	capacity := len(f.data)

	if n >= capacity {
		f.overrun.Add(1)
		copy(f.data, p[n-capacity:])
		f.readPos = 0
		f.size = capacity

		return n, nil
	}

	if drop := f.size + n - capacity; drop > 0 {
		f.overrun.Add(1)
		f.readPos = (f.readPos + drop) % capacity
		f.size -= drop
	}

	writePos := (f.readPos + f.size) % capacity
	c := copy(f.data[writePos:min(writePos+n, capacity)], p)
	copy(f.data, p[c:])
	f.size += n

	return n, nil
}

// Read fills p from the queue, zero-padding whatever the queue cannot supply.
// It returns io.EOF only after Close, once the queue is drained.
func (f *FIFO) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed && f.size == 0 {
		return 0, io.EOF
	}

	n := min(len(p), f.size)
	capacity := len(f.data)

	c := copy(p[:n], f.data[f.readPos:min(f.readPos+n, capacity)])
	copy(p[c:n], f.data)
	f.readPos = (f.readPos + n) % capacity
	f.size -= n

	if n < len(p) {
		f.underrun.Add(1)
		clear(p[n:])
	}

	return len(p), nil
}

// Len returns the number of queued bytes.
func (f *FIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.size
}

// Close marks the end of the stream. Queued data can still be read.
func (f *FIFO) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Underruns returns the number of reads that had to be padded.
func (f *FIFO) Underruns() uint64 {
	return f.underrun.Load()
}

// Overruns returns the number of writes that dropped queued data.
func (f *FIFO) Overruns() uint64 {
	return f.overrun.Load()
}

// PCMBufferReader is implemented by go-audio decoders such as *wav.Decoder.
type PCMBufferReader interface {
	PCMBuffer(buf *audio.IntBuffer) (n int, err error)
}

// DecoderSource adapts a decoder producing integer PCM into a 16-bit little-endian sample source.
// Samples are rescaled from bitDepth to 16 bits. 8-bit samples are unsigned, centred on 128. After the decoder is exhausted, reads return silence,
// which keeps the stream fed until it is stopped.
type DecoderSource struct {
	dec      PCMBufferReader
	buf      *audio.IntBuffer
	bitDepth int
	eof      atomic.Bool
	err      error
}

// NewDecoderSource creates a source for a decoder of the given channel count, sample rate and bit depth.
func NewDecoderSource(dec PCMBufferReader, channels, rate, bitDepth int) (*DecoderSource, error) {
	if dec == nil {
		return nil, fmt.Errorf("decoder cannot be nil")
	}

	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	return &DecoderSource{
		dec: dec,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
	}, nil
}

// Read implements io.Reader. p is filled completely; the part the decoder cannot supply is zero.
func (s *DecoderSource) Read(p []byte) (int, error) {
	samples := len(p) / BytesPerSample
	if cap(s.buf.Data) < samples {
		s.buf.Data = make([]int, samples)
	}
	s.buf.Data = s.buf.Data[:samples]

	n := 0
	if !s.eof.Load() {
		var err error
		n, err = s.dec.PCMBuffer(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			s.err = err
		}

		if err != nil || n == 0 {
			s.eof.Store(true)
		}
	}

	shift := s.bitDepth - 16
	for i := 0; i < n; i++ {
		v := s.buf.Data[i]
		if s.bitDepth == 8 {
			v -= 128
		}

		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		v = min(max(v, -32768), 32767)

		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
	}
	clear(p[n*BytesPerSample:])

	return len(p), nil
}

// Done reports whether the decoder has been exhausted.
func (s *DecoderSource) Done() bool {
	return s.eof.Load()
}

// Err returns the decoder error that ended the stream, if any.
func (s *DecoderSource) Err() error {
	return s.err
}
