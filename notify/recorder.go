package notify

import (
	"sync"
	"time"
)

// Recorder captures notifications in memory. It satisfies the notifier
// interfaces used by the stores and the overview actor and is meant for
// tests and the CLI's one-shot commands.
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records a notification
func (r *Recorder) Notify(kind Kind, action, objectName, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Notification{
		Kind:       kind,
		Action:     action,
		ObjectName: objectName,
		Detail:     detail,
		Timestamp:  time.Now().UTC(),
	})
}

// Notifications returns a copy of everything recorded so far
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// Errors returns only the error notifications
func (r *Recorder) Errors() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.notes {
		if n.Kind == KindError {
			out = append(out, n)
		}
	}
	return out
}

// Reset clears the recorded notifications
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}
