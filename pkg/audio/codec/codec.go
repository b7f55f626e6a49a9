// Package codec decodes uploaded recordings into mono PCM signals.
//
// The container is sniffed from the leading bytes rather than trusted from
// a file extension. RIFF/WAVE is handled by package wav and MPEG audio by
// package mp3.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/haivivi/adscreen/pkg/audio/codec/mp3"
	"github.com/haivivi/adscreen/pkg/audio/codec/wav"
	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

// Container identifies an audio file format.
type Container string

const (
	ContainerWAV Container = "wav"
	ContainerMP3 Container = "mp3"
)

// ErrUnknownFormat is returned when the leading bytes match no supported
// container.
var ErrUnknownFormat = errors.New("codec: unrecognized audio container")

// Audio is a decoded recording.
type Audio struct {
	Signal    pcm.Signal // mono mix at the native rate
	Format    pcm.Format // source layout
	Container Container
}

// DecodeError wraps a failure to read or decode a recording.
type DecodeError struct {
	Op  string // "open", "sniff" or "decode"
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Sniff identifies the container from a file's leading bytes.
func Sniff(head []byte) (Container, error) {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return ContainerWAV, nil
	case len(head) >= 3 && bytes.Equal(head[:3], []byte("ID3")):
		return ContainerMP3, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return ContainerMP3, nil
	}
	return "", ErrUnknownFormat
}

// Decode sniffs r and decodes the whole recording. The reader is rewound
// to the start before decoding.
func Decode(r io.ReadSeeker) (*Audio, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			err = ErrUnknownFormat
		}
		return nil, &DecodeError{Op: "sniff", Err: err}
	}
	container, err := Sniff(head[:n])
	if err != nil {
		return nil, &DecodeError{Op: "sniff", Err: err}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &DecodeError{Op: "sniff", Err: err}
	}

	var (
		sig    pcm.Signal
		format pcm.Format
	)
	switch container {
	case ContainerWAV:
		sig, format, err = wav.Decode(r)
	case ContainerMP3:
		sig, format, err = mp3.Decode(r)
	}
	if err != nil {
		return nil, &DecodeError{Op: "decode", Err: err}
	}
	return &Audio{Signal: sig, Format: format, Container: container}, nil
}

// DecodeFile opens and decodes the recording at path.
func DecodeFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Op: "open", Err: err}
	}
	defer f.Close()
	return Decode(f)
}
