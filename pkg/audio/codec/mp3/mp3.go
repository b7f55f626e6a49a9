// Package mp3 decodes MPEG-1/2 Layer III audio.
//
// Decoding uses go-mp3, a pure Go decoder. The decoder always produces
// 16-bit little-endian stereo PCM; mono sources are duplicated into both
// channels.
package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

// Channels is the channel count of every decoded stream.
const Channels = 2

// Depth is the bit depth of every decoded stream.
const Depth = 16

// ErrEmpty is returned when a stream decodes to zero samples.
var ErrEmpty = errors.New("mp3: no audio frames")

// DecodeFull decodes the entire MP3 stream and returns interleaved 16-bit
// PCM data. This is a convenience function for short clips.
func DecodeFull(r io.Reader) (data []byte, sampleRate, channels int, err error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("mp3: open: %w", err)
	}

	var buf []byte
	if n := dec.Length(); n > 0 {
		buf = make([]byte, 0, n)
	}
	tmp := make([]byte, 8192)
	for {
		n, err := dec.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("mp3: read: %w", err)
		}
	}
	if len(buf) == 0 {
		return nil, 0, 0, ErrEmpty
	}
	return buf, dec.SampleRate(), Channels, nil
}

// Decode decodes the stream into a mono Signal at its native rate.
func Decode(r io.Reader) (pcm.Signal, pcm.Format, error) {
	data, rate, ch, err := DecodeFull(r)
	if err != nil {
		return pcm.Signal{}, pcm.Format{}, err
	}
	format := pcm.Format{SampleRate: rate, Channels: ch, Depth: Depth}
	if err := format.Validate(); err != nil {
		return pcm.Signal{}, pcm.Format{}, fmt.Errorf("mp3: %w", err)
	}
	return format.Signal(pcm.Int16LE(data)), format, nil
}
