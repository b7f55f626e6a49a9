package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	const data = "RIFF....WAVE"
	w, err := s.Write(ctx, "uploads/a.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := s.Read(ctx, "uploads/a.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != data {
		t.Fatalf("got %q, want %q", got, data)
	}
	if want := filepath.Join(s.Root(), "uploads", "a.wav"); s.Path("uploads/a.wav") != want {
		t.Fatalf("Path = %q, want %q", s.Path("uploads/a.wav"), want)
	}
}

func TestReadNotExist(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Read(context.Background(), "no-such-file")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}
	w, err := s.Write(ctx, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	for range 2 {
		if err := s.Delete(ctx, "tmp"); err != nil {
			t.Fatal(err)
		}
	}
	ok, err := s.Exists(ctx, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("file should be gone after delete")
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "staging")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}

func TestStage(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	name, err := s.Stage(ctx, strings.NewReader("audio bytes"), ".wav", 64)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(name) != ".wav" || len(name) != 36+4 {
		t.Fatalf("unexpected staged name %q", name)
	}
	got, err := os.ReadFile(s.Path(name))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "audio bytes" {
		t.Fatalf("got %q", got)
	}

	other, err := s.Stage(ctx, strings.NewReader("x"), ".wav", 0)
	if err != nil {
		t.Fatal(err)
	}
	if other == name {
		t.Fatal("staged names must be unique")
	}
}

func TestStage_ExactLimit(t *testing.T) {
	s := newTestLocal(t)
	if _, err := s.Stage(context.Background(), bytes.NewReader(make([]byte, 16)), ".mp3", 16); err != nil {
		t.Fatalf("Stage at limit: %v", err)
	}
}

func TestStage_TooLargeRemovesFile(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Stage(context.Background(), bytes.NewReader(make([]byte, 17)), ".wav", 16)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir not empty: %d entries", len(entries))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStage_ReadErrorRemovesFile(t *testing.T) {
	s := newTestLocal(t)
	if _, err := s.Stage(context.Background(), failingReader{}, ".wav", 0); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 0 {
		t.Fatalf("staging dir not empty: %d entries", len(entries))
	}
}
