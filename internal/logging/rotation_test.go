package logging

import (
	"bytes"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

func TestRotatingWriter_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, "/logs/app.log", RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	if _, err := rw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rw.CurrentSize() != 6 {
		t.Errorf("CurrentSize() = %d, want 6", rw.CurrentSize())
	}
	if rw.FilePath() != "/logs/app.log" {
		t.Errorf("FilePath() = %q", rw.FilePath())
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, "/logs/app.log", RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	chunk := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 4; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	for _, p := range []string{"/logs/app.log", "/logs/app.log.1", "/logs/app.log.2"} {
		if ok, _ := afero.Exists(fs, p); !ok {
			t.Errorf("%s should exist", p)
		}
	}
	if ok, _ := afero.Exists(fs, "/logs/app.log.3"); ok {
		t.Error("backups beyond MaxBackups should be removed")
	}
	if rw.CurrentSize() != int64(len(chunk)) {
		t.Errorf("CurrentSize() = %d after rotation, want %d", rw.CurrentSize(), len(chunk))
	}
}

func TestRotatingWriter_NoBackups(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, "/logs/app.log", RotationConfig{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	chunk := bytes.Repeat([]byte("y"), 700*1024)
	rw.Write(chunk)
	rw.Write(chunk)

	if ok, _ := afero.Exists(fs, "/logs/app.log.1"); ok {
		t.Error("no backup should be kept when MaxBackups is 0")
	}
}

func TestRotatingWriter_Close(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, "/logs/app.log", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, err := rw.Write([]byte("late")); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestRotatingWriter_Concurrent(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, "/logs/app.log", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rw.Write([]byte("line\n"))
		}()
	}
	wg.Wait()

	if rw.CurrentSize() != 100 {
		t.Errorf("CurrentSize() = %d, want 100", rw.CurrentSize())
	}
}
