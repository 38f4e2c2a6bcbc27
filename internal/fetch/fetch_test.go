package fetch

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFindAudio(t *testing.T) {
	dir := t.TempDir()

	if _, err := findAudio(dir); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("findAudio(empty) error = %v, want ErrNoAudio", err)
	}

	os.WriteFile(filepath.Join(dir, "abc.webm"), []byte("video"), 0o644)
	want := filepath.Join(dir, "abc.mp3")
	os.WriteFile(want, []byte("audio"), 0o644)

	got, err := findAudio(dir)
	if err != nil {
		t.Fatalf("findAudio() error = %v", err)
	}
	if got != want {
		t.Errorf("findAudio() = %q, want %q", got, want)
	}
}

func TestAudioLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fetch-1")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "abc.mp3")
	os.WriteFile(path, []byte("audio"), 0o644)

	a := &Audio{Path: path, Title: "Song", dir: dir}
	if a.Name() != "abc.mp3" {
		t.Errorf("Name() = %q", a.Name())
	}

	f, err := a.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "audio" {
		t.Errorf("content = %q", data)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir still exists: %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	d := New("")
	if d.timeout != DefaultTimeout || d.logger == nil {
		t.Errorf("New() = %+v", d)
	}
}
