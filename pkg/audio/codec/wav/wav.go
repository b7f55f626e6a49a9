// Package wav reads and writes RIFF/WAVE files.
//
// Decode accepts integer PCM (8, 16, 24 and 32 bit) and IEEE float (32
// and 64 bit), either with a plain format tag or wrapped in
// WAVE_FORMAT_EXTENSIBLE. Encode writes 16-bit integer PCM.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	gowav "github.com/go-audio/wav"

	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

// WAVE format tags.
const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

// subFormatSuffix is the fixed tail of the KSDATAFORMAT_SUBTYPE GUIDs. The
// first two bytes of a sub-format GUID carry the plain format tag.
var subFormatSuffix = []byte{
	0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00,
	0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}

var (
	// ErrInvalid is returned for streams without a valid RIFF/WAVE header.
	ErrInvalid = errors.New("wav: invalid header")
	// ErrUnsupported is returned for encodings other than integer PCM and
	// IEEE float.
	ErrUnsupported = errors.New("wav: unsupported encoding")
	// ErrEmpty is returned when the data chunk holds no whole frame.
	ErrEmpty = errors.New("wav: no samples")
)

// Decode reads the whole stream and returns it as a mono Signal at its
// native rate, together with the source layout.
func Decode(r io.ReadSeeker) (pcm.Signal, pcm.Format, error) {
	tag, err := formatTag(r)
	if err != nil {
		return pcm.Signal{}, pcm.Format{}, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return pcm.Signal{}, pcm.Format{}, fmt.Errorf("wav: rewind: %w", err)
	}

	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return pcm.Signal{}, pcm.Format{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return pcm.Signal{}, pcm.Format{}, ErrInvalid
	}
	if tag != formatPCM && tag != formatFloat {
		return pcm.Signal{}, pcm.Format{}, fmt.Errorf("%w: format tag %#x", ErrUnsupported, tag)
	}

	format := pcm.Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Depth:      int(dec.BitDepth),
		Float:      tag == formatFloat,
	}
	if err := format.Validate(); err != nil {
		return pcm.Signal{}, pcm.Format{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	var sig pcm.Signal
	if format.Float {
		sig, err = decodeFloat(dec, format)
	} else {
		sig, err = decodeInt(dec, format)
	}
	if err != nil {
		return pcm.Signal{}, pcm.Format{}, err
	}
	if sig.Len() == 0 {
		return pcm.Signal{}, pcm.Format{}, ErrEmpty
	}
	return sig, format, nil
}

// formatTag reads the fmt chunk and returns its format tag, resolving
// WAVE_FORMAT_EXTENSIBLE to the tag of its sub-format.
func formatTag(r io.Reader) (uint16, error) {
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if p.Format != riff.WavFormatID {
		return 0, fmt.Errorf("%w: form type %q", ErrInvalid, p.Format[:])
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("%w: no fmt chunk: %v", ErrInvalid, err)
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}
		body := make([]byte, ch.Size)
		if _, err := io.ReadFull(ch, body); err != nil {
			return 0, fmt.Errorf("%w: short fmt chunk: %v", ErrInvalid, err)
		}
		return parseFormatTag(body)
	}
}

// parseFormatTag extracts the effective format tag from a fmt chunk body.
// The extensible layout appends cbSize, valid bits, the channel mask and
// the 16-byte sub-format GUID to the 16-byte base.
func parseFormatTag(body []byte) (uint16, error) {
	if len(body) < 16 {
		return 0, fmt.Errorf("%w: fmt chunk of %d bytes", ErrInvalid, len(body))
	}
	tag := binary.LittleEndian.Uint16(body)
	if tag != formatExtensible {
		return tag, nil
	}
	if len(body) < 40 {
		return 0, fmt.Errorf("%w: extensible fmt chunk without sub-format", ErrUnsupported)
	}
	guid := body[24:40]
	if !bytes.Equal(guid[2:], subFormatSuffix) {
		return 0, fmt.Errorf("%w: sub-format %x", ErrUnsupported, guid)
	}
	return binary.LittleEndian.Uint16(guid), nil
}

// decodeInt reads integer PCM through the go-audio decoder. 8-bit WAVE
// samples are unsigned and are shifted to signed before scaling.
func decodeInt(dec *gowav.Decoder, format pcm.Format) (pcm.Signal, error) {
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("wav: read samples: %w", err)
	}
	if format.Depth == 8 {
		for i, v := range buf.Data {
			buf.Data[i] = v - 128
		}
	}
	return format.Signal(buf.Data), nil
}

// decodeFloat reads the raw data chunk as little-endian IEEE floats.
func decodeFloat(dec *gowav.Decoder, format pcm.Format) (pcm.Signal, error) {
	if err := dec.FwdToPCM(); err != nil {
		return pcm.Signal{}, fmt.Errorf("wav: find samples: %w", err)
	}
	if dec.PCMChunk == nil {
		return pcm.Signal{}, fmt.Errorf("wav: find samples: %w", gowav.ErrPCMChunkNotFound)
	}
	data, err := io.ReadAll(dec.PCMChunk)
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("wav: read samples: %w", err)
	}
	if format.Depth == 64 {
		return format.Mix(pcm.Float64LE(data)), nil
	}
	return format.Mix(pcm.Float32LE(data)), nil
}

// Encode writes sig as a mono 16-bit PCM WAVE file. Samples outside
// [-1, 1] are clipped.
func Encode(w io.WriteSeeker, sig pcm.Signal) error {
	if sig.Rate <= 0 {
		return fmt.Errorf("wav: invalid sample rate %d", sig.Rate)
	}
	data := make([]int, len(sig.Samples))
	for i, s := range sig.Samples {
		v := math.Round(s * math.MaxInt16)
		data[i] = int(max(math.MinInt16, min(math.MaxInt16, v)))
	}

	enc := gowav.NewEncoder(w, sig.Rate, 16, 1, formatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sig.Rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: close: %w", err)
	}
	return nil
}
