package tts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCMFormat describes raw little-endian signed PCM.
type PCMFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// EncodeWAV wraps raw 16-bit little-endian PCM into a RIFF/WAVE container.
func EncodeWAV(pcm []byte, f PCMFormat) ([]byte, error) {
	if f.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, fmt.Errorf("invalid pcm format %+v", f)
	}
	if len(pcm) == 0 {
		return nil, errors.New("no audio produced")
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	format := &audio.Format{SampleRate: f.SampleRate, NumChannels: f.Channels}
	out := &memFile{}
	e := wav.NewEncoder(out, f.SampleRate, f.BitDepth, f.Channels, 1) // 1 = PCM

	buf := &audio.IntBuffer{
		Format:         format,
		Data:           samples,
		SourceBitDepth: f.BitDepth,
	}
	if err := e.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := e.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	return out.buf, nil
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch the chunk sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
