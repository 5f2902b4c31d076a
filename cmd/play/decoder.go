package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// AudioDecoder abstracts the file formats the player can feed into the stream.
type AudioDecoder interface {
	// PCMBuffer reads decoded samples (not frames) into buf.
	PCMBuffer(buf *audio.IntBuffer) (n int, err error)
	Duration() (time.Duration, error)
	NumChans() uint16
	SampleRate() uint32
	BitDepth() uint16
}

// openDecoder picks a decoder by file extension. The returned file must be closed by the caller.
func openDecoder(path string) (AudioDecoder, *os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var dec AudioDecoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		dec, err = newMp3Decoder(file)
	case ".wav", ".wave":
		dec, err = newWavDecoder(file)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	if err != nil {
		_ = file.Close()

		return nil, nil, err
	}

	return dec, file, nil
}

type wavDecoder struct {
	*wav.Decoder
}

func newWavDecoder(r io.ReadSeeker) (AudioDecoder, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	// IEEE float data cannot be rescaled as integers.
	if decoder.WavAudioFormat == 3 {
		return nil, errors.New("floating-point WAV files are not supported")
	}

	return &wavDecoder{Decoder: decoder}, nil
}

func (w *wavDecoder) SampleRate() uint32 { return w.Decoder.SampleRate }
func (w *wavDecoder) NumChans() uint16   { return w.Decoder.NumChans }
func (w *wavDecoder) BitDepth() uint16   { return w.Decoder.BitDepth }

// mp3Decoder adapts go-mp3, which always produces 16-bit stereo.
type mp3Decoder struct {
	decoder *mp3.Decoder
	raw     []byte
}

func newMp3Decoder(r io.Reader) (AudioDecoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	return &mp3Decoder{decoder: decoder}, nil
}

func (m *mp3Decoder) PCMBuffer(buf *audio.IntBuffer) (int, error) {
	need := len(buf.Data) * 2
	if cap(m.raw) < need {
		m.raw = make([]byte, need)
	}
	raw := m.raw[:need]

	// Fill as much of the request as the decoder can supply; it may return short frames.
	got := 0
	var err error
	for got < need && err == nil {
		var n int
		n, err = m.decoder.Read(raw[got:])
		got += n
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	samples := got / 2
	for i := 0; i < samples; i++ {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return samples, err
}

func (m *mp3Decoder) Duration() (time.Duration, error) {
	const bytesPerFrame = 4
	frames := m.decoder.Length() / bytesPerFrame
	if frames < 0 {
		return 0, errors.New("unknown stream length")
	}

	return time.Duration(float64(frames) / float64(m.decoder.SampleRate()) * float64(time.Second)), nil
}

func (m *mp3Decoder) SampleRate() uint32 { return uint32(m.decoder.SampleRate()) }
func (m *mp3Decoder) NumChans() uint16   { return 2 }
func (m *mp3Decoder) BitDepth() uint16   { return 16 }
