package cs43l22

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavSink records the transmitted serial audio stream to a WAV file. It is an io.Writer accepting
// interleaved 16-bit little-endian samples, so it can terminate a ClockedBus.
type WavSink struct {
	mu      sync.Mutex
	enc     *wav.Encoder
	buf     *audio.IntBuffer
	samples uint64
}

// NewWavSink creates a 16-bit PCM WAV encoder on w for the given stream configuration.
func NewWavSink(w io.WriteSeeker, cfg Config) (*WavSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &WavSink{
		enc: wav.NewEncoder(w, int(cfg.Rate), 8*BytesPerSample, int(cfg.Channels), 1),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: int(cfg.Channels),
				SampleRate:  int(cfg.Rate),
			},
			SourceBitDepth: 8 * BytesPerSample,
		},
	}, nil
}

// Write encodes p. A trailing odd byte is dropped.
func (s *WavSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / BytesPerSample
	if cap(s.buf.Data) < n {
		s.buf.Data = make([]int, n)
	}
	s.buf.Data = s.buf.Data[:n]

	for i := range n {
		s.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(p[i*BytesPerSample:])))
	}

	if err := s.enc.Write(s.buf); err != nil {
		return 0, fmt.Errorf("failed to encode samples: %w", err)
	}
	s.samples += uint64(n)

	return len(p), nil
}

// Samples returns the number of samples written.
func (s *WavSink) Samples() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.samples
}

// Close finalizes the WAV header. The underlying writer is not closed.
func (s *WavSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enc.Close()
}
