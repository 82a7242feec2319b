package sample

import (
	"encoding/binary"
	"io"
	"path"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedFormat is returned for extensions with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEmpty is returned when a file decodes to zero frames.
	ErrEmpty = errors.New("decoded audio is empty")
)

// Decode decodes a wav, mp3 or ogg asset named name (only the extension is
// used) into a stereo buffer at sampleRate.
func Decode(name string, r io.ReadSeeker, sampleRate int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate %d", sampleRate)
	}
	var (
		stream io.Reader
		err    error
	)
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".wav", ".wave":
		stream, err = wav.DecodeWithSampleRate(sampleRate, r)
	case ".mp3":
		stream, err = mp3.DecodeWithSampleRate(sampleRate, r)
	case ".ogg", ".oga":
		stream, err = vorbis.DecodeWithSampleRate(sampleRate, r)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	buf := fromStereo16(raw, sampleRate)
	if buf.Frames() == 0 {
		return nil, errors.Wrap(ErrEmpty, name)
	}
	return buf, nil
}

// fromStereo16 converts the decoders' 16-bit little-endian stereo output.
func fromStereo16(raw []byte, sampleRate int) *Buffer {
	frames := len(raw) / 4
	data := make([]float32, frames*2)
	for i := range data {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		data[i] = float32(v) / 32768
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}
