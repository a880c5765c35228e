// Package command is the process-wide registry of named application commands
// (for example "editor:save" or "app:toc_refresh").
package command

import (
	"sort"
	"sync"

	"github.com/Iron-Ham/docsession/internal/errors"
)

// Well-known command IDs.
const (
	EditorSave     = "editor:save"
	OutlineRefresh = "app:toc_refresh"
)

// Handler runs a command.
type Handler func() error

// Command is one registered command. Owner identifies who registered it so
// that a destroyed document can drop only its own bindings.
type Command struct {
	ID      string
	Owner   string
	Handler Handler
}

// Registry maps command IDs to handlers. Registering an ID that is already
// bound replaces the previous binding. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Add binds cmd.ID to cmd, replacing any previous binding.
func (r *Registry) Add(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.ID] = cmd
}

// Execute runs the handler bound to id. The handler runs outside the
// registry lock so it may register or remove commands itself.
func (r *Registry) Execute(id string) error {
	r.mu.RLock()
	cmd, ok := r.commands[id]
	r.mu.RUnlock()

	if !ok || cmd.Handler == nil {
		return errors.NewNotFoundError("command", id).WithCause(errors.ErrCommandNotFound)
	}
	return cmd.Handler()
}

// Remove unbinds id.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[id]; !ok {
		return false
	}
	delete(r.commands, id)
	return true
}

// RemoveOwned unbinds every command registered by owner and returns how many
// were removed.
func (r *Registry) RemoveOwned(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, cmd := range r.commands {
		if cmd.Owner == owner {
			delete(r.commands, id)
			n++
		}
	}
	return n
}

// Owner returns who currently owns id.
func (r *Registry) Owner(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd.Owner, ok
}

// IDs returns the registered command IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
