package tui

import (
	"time"

	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/notify"
)

// toastTTL is how long success and error toasts stay on screen.
const toastTTL = 4 * time.Second

// maxToasts bounds the toast stack.
const maxToasts = 3

// promptResult answers a save dialog. ok=false means cancelled.
type promptResult struct {
	path string
	ok   bool
}

// promptRequestMsg asks the model to show the save dialog. The answer goes
// back on reply, which is buffered.
type promptRequestMsg struct {
	title       string
	defaultName string
	reply       chan promptResult
}

// toastMsg shows a notification.
type toastMsg struct {
	id    string
	level notify.Level
	text  string
}

// dismissMsg removes a loading toast.
type dismissMsg struct {
	id string
}

// toastExpiredMsg removes a timed toast.
type toastExpiredMsg struct {
	id string
}

// busMsg carries an event published on the session bus.
type busMsg struct {
	event event.Event
}

// opDoneMsg reports the end of a background operation started by a key.
type opDoneMsg struct {
	op   string
	err  error
	quit bool
}

// Background operation names.
const (
	opSave        = "save"
	opToggle      = "toggle"
	opExportHTML  = "export html"
	opExportImage = "export image"
	opNew         = "new"
	opSaveAll     = "save all"
	opClose       = "close"
)
