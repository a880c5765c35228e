// Package store is the persistence gateway between document sessions and the
// file store: existence checks, reads, writes and the save dialog.
//
// Every operation takes a context and surfaces failures as *errors.IOError.
// Nothing here retries; callers report the failure and the user re-issues the
// action.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/docsession/internal/errors"
)

// Gateway performs file I/O for document sessions.
type Gateway interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string) error
	WriteBinary(ctx context.Context, path string, data []byte) error
}

// Prompter asks the user for a destination path. ok=false means the user
// cancelled, which is not an error.
type Prompter interface {
	PromptSavePath(ctx context.Context, title, defaultName string) (path string, ok bool, err error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, title, defaultName string) (string, bool, error)

// PromptSavePath implements Prompter.
func (f PrompterFunc) PromptSavePath(ctx context.Context, title, defaultName string) (string, bool, error) {
	return f(ctx, title, defaultName)
}

// StaticPrompter answers every prompt with Path, or cancels when Path is
// empty. It serves non-interactive callers such as the export command.
type StaticPrompter struct {
	Path string
}

// PromptSavePath implements Prompter.
func (p StaticPrompter) PromptSavePath(ctx context.Context, _, _ string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if p.Path == "" {
		return "", false, nil
	}
	return p.Path, true, nil
}

// FSGateway is a Gateway over an afero filesystem. Writes go to a temp file
// in the destination directory and are renamed into place.
type FSGateway struct {
	fs      afero.Fs
	perm    os.FileMode
	mu      sync.Mutex // serializes writes to the same filesystem
	onWrite func(path string)
}

// GatewayOption configures an FSGateway.
type GatewayOption func(*FSGateway)

// WithFileMode sets the permission bits of written files (default 0644).
func WithFileMode(perm os.FileMode) GatewayOption {
	return func(g *FSGateway) { g.perm = perm }
}

// WithWriteHook registers a function called with the path of every completed
// write, before the write returns.
func WithWriteHook(fn func(path string)) GatewayOption {
	return func(g *FSGateway) { g.onWrite = fn }
}

// NewFSGateway creates a gateway on fs. A nil fs uses the OS filesystem.
func NewFSGateway(fs afero.Fs, opts ...GatewayOption) *FSGateway {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	g := &FSGateway{fs: fs, perm: 0o644}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fs returns the underlying filesystem.
func (g *FSGateway) Fs() afero.Fs { return g.fs }

// Exists implements Gateway.
func (g *FSGateway) Exists(ctx context.Context, path string) (bool, error) {
	if err := checkPath(ctx, "stat", path); err != nil {
		return false, err
	}
	info, err := g.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewIOError("stat", path, err)
	}
	return !info.IsDir(), nil
}

// Read implements Gateway.
func (g *FSGateway) Read(ctx context.Context, path string) (string, error) {
	if err := checkPath(ctx, "read", path); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(g.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError("read", path, fmt.Errorf("%w: %w", errors.ErrFileNotExist, err))
		}
		return "", errors.NewIOError("read", path, err)
	}
	return string(data), nil
}

// Write implements Gateway.
func (g *FSGateway) Write(ctx context.Context, path, content string) error {
	return g.write(ctx, "write", path, []byte(content))
}

// WriteBinary implements Gateway.
func (g *FSGateway) WriteBinary(ctx context.Context, path string, data []byte) error {
	return g.write(ctx, "write", path, data)
}

func (g *FSGateway) write(ctx context.Context, op, path string, data []byte) error {
	if err := checkPath(ctx, op, path); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.atomicWriteFile(path, data); err != nil {
		return errors.NewIOError(op, path, err)
	}
	if g.onWrite != nil {
		g.onWrite(path)
	}
	return nil
}

// atomicWriteFile writes data to a temp file in the destination directory,
// then renames it over path.
func (g *FSGateway) atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if _, err := g.fs.Stat(dir); err != nil {
		return err
	}

	tmpFile, err := afero.TempFile(g.fs, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = g.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := g.fs.Chmod(tmpPath, g.perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := g.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func checkPath(ctx context.Context, op, path string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewIOError(op, path, err)
	}
	if path == "" {
		return errors.NewIOError(op, path, errors.ErrEmptyPath)
	}
	return nil
}
