// Package dirty tracks, per document, whether in-memory content diverges
// from what was last persisted.
package dirty

import "sync"

// State is the tracked state of one document.
type State struct {
	HasUnsavedChanges bool
	UndoDepth         int
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	HasUnsavedChanges *bool
	UndoDepth         *int
}

// MarkDirty records a semantic edit observed at the given undo depth.
func MarkDirty(undoDepth int) Patch {
	dirty := true
	return Patch{HasUnsavedChanges: &dirty, UndoDepth: &undoDepth}
}

// MarkClean clears the unsaved-changes flag and keeps the undo depth.
func MarkClean() Patch {
	clean := false
	return Patch{HasUnsavedChanges: &clean}
}

// Tracker is a process-wide map of document ID to State.
// It is safe for concurrent use. Entries for different IDs never interact.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]State)}
}

// Get returns the state for id. The bool is false when nothing is tracked.
func (t *Tracker) Get(id string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[id]
	return s, ok
}

// Set merges p into the state for id, creating the entry if needed.
func (t *Tracker) Set(id string, p Patch) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.states[id]
	if p.HasUnsavedChanges != nil {
		s.HasUnsavedChanges = *p.HasUnsavedChanges
	}
	if p.UndoDepth != nil {
		s.UndoDepth = *p.UndoDepth
	}
	t.states[id] = s
	return s
}

// IsDirty reports whether id has unsaved changes.
func (t *Tracker) IsDirty(id string) bool {
	s, ok := t.Get(id)
	return ok && s.HasUnsavedChanges
}

// Delete releases the entry for id.
func (t *Tracker) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}

// DirtyIDs returns the IDs of all documents with unsaved changes.
func (t *Tracker) DirtyIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for id, s := range t.states {
		if s.HasUnsavedChanges {
			ids = append(ids, id)
		}
	}
	return ids
}
