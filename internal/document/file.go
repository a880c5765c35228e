// Package document holds the file objects backing open document sessions and
// the folder tree saved documents are inserted into.
package document

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/docsession/internal/errors"
)

// File is the file object behind one open document.
type File struct {
	ID      string
	Path    string // empty until the document is first saved
	Name    string
	Content *string // nil while not yet loaded
	Missing bool    // Path is set but the file is not on disk
	Opened  time.Time
}

// HasPath reports whether the file has ever been written to disk.
func (f File) HasPath() bool { return f.Path != "" }

// Folder returns the folder containing the file, or "" when pathless.
func (f File) Folder() string { return FolderPathFromPath(f.Path) }

// FileNameFromPath returns the last element of path.
func FileNameFromPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// FolderPathFromPath returns the directory of path, or "" when path is empty.
func FolderPathFromPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}

// Registry is the process-wide set of file objects, indexed by document ID.
// A path is owned by at most one file at a time.
type Registry struct {
	mu           sync.RWMutex
	files        map[string]*File
	byPath       map[string]string // cleaned path -> document ID
	untitledName string
}

// NewRegistry creates a Registry. untitledName names pathless files.
func NewRegistry(untitledName string) *Registry {
	if untitledName == "" {
		untitledName = "Untitled"
	}
	return &Registry{
		files:        make(map[string]*File),
		byPath:       make(map[string]string),
		untitledName: untitledName,
	}
}

// UntitledName returns the display name of pathless files.
func (r *Registry) UntitledName() string { return r.untitledName }

// Create registers a new file object. content may be nil for a file that is
// loaded later. Returns errors.ErrPathInUse if another file owns path.
func (r *Registry) Create(path string, content *string) (File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &File{
		ID:     uuid.NewString(),
		Name:   r.untitledName,
		Opened: time.Now(),
	}
	if content != nil {
		c := *content
		f.Content = &c
	}
	if path != "" {
		if err := r.claimLocked(f.ID, path); err != nil {
			return File{}, err
		}
		f.Path = filepath.Clean(path)
		f.Name = FileNameFromPath(path)
	}
	r.files[f.ID] = f
	return r.snapshot(f), nil
}

// Get returns a copy of the file object.
func (r *Registry) Get(id string) (File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	if !ok {
		return File{}, false
	}
	return r.snapshot(f), true
}

// ByPath returns the file that owns path.
func (r *Registry) ByPath(path string) (File, bool) {
	if path == "" {
		return File{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[filepath.Clean(path)]
	if !ok {
		return File{}, false
	}
	return r.snapshot(r.files[id]), true
}

// SetPath assigns a path to the file, updating its name. A file never loses
// its path: an empty path is rejected.
func (r *Registry) SetPath(id, path string) (File, error) {
	if path == "" {
		return File{}, errors.ErrEmptyPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return File{}, errors.NewNotFoundError("document", id).WithCause(errors.ErrSessionNotFound)
	}
	if err := r.claimLocked(id, path); err != nil {
		return File{}, err
	}
	if f.Path != "" && filepath.Clean(path) != f.Path {
		delete(r.byPath, f.Path)
	}
	f.Path = filepath.Clean(path)
	f.Name = FileNameFromPath(path)
	f.Missing = false
	return r.snapshot(f), nil
}

// SetContent replaces the cached content.
func (r *Registry) SetContent(id, content string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return false
	}
	f.Content = &content
	return true
}

// SetMissing records whether the file's path is absent from disk.
func (r *Registry) SetMissing(id string, missing bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return false
	}
	f.Missing = missing
	return true
}

// Remove forgets the file and releases its path.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return false
	}
	if f.Path != "" && r.byPath[f.Path] == id {
		delete(r.byPath, f.Path)
	}
	delete(r.files, id)
	return true
}

// Paths returns every owned path, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// claimLocked records id as the owner of path. Claiming a path the file
// already owns is a no-op.
func (r *Registry) claimLocked(id, path string) error {
	clean := filepath.Clean(path)
	if owner, ok := r.byPath[clean]; ok && owner != id {
		return fmt.Errorf("%w: %s", errors.ErrPathInUse, clean)
	}
	r.byPath[clean] = id
	return nil
}

func (r *Registry) snapshot(f *File) File {
	out := *f
	if f.Content != nil {
		c := *f.Content
		out.Content = &c
	}
	return out
}
