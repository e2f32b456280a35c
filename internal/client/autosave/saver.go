// Package autosave coalesces rapid keystroke-level edits into infrequent
// durable writes without losing the final state.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/knowledgebrain/knowbrain/internal/logging"
)

// QuietPeriod is the default debounce window: a write is issued once no new
// edit has arrived for this long.
const QuietPeriod = 1500 * time.Millisecond

// WriteFunc persists the latest title and content of one note. The caller
// wires it to the update endpoint and refreshes its caches on success.
type WriteFunc func(ctx context.Context, noteID, title, content string) error

// Observer is notified after each write settles. savedAt is the local
// persistence timestamp for UI feedback; err is non-nil when the write was
// rejected, in which case the edit is discarded and never retried.
type Observer func(noteID string, savedAt time.Time, err error)

// pendingEdit is the transient per-note record. At most one exists per note;
// a newer edit overwrites the values and resets the timer instead of
// creating a second record.
type pendingEdit struct {
	title    string
	content  string
	timer    *time.Timer
	inFlight bool
	dirty    bool // an edit arrived while a write was in flight
}

// Saver is the debounced persistence controller. It guarantees at most one
// in-flight write per note; edits arriving during a write are buffered and
// start a new debounce cycle only after the write settles, which prevents
// write amplification and out-of-order persistence.
type Saver struct {
	mu       sync.Mutex
	pending  map[string]*pendingEdit
	write    WriteFunc
	observer Observer
	quiet    time.Duration
	log      logging.Logger
}

func NewSaver(write WriteFunc, observer Observer, log logging.Logger) *Saver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if observer == nil {
		observer = func(string, time.Time, error) {}
	}
	return &Saver{
		pending:  make(map[string]*pendingEdit),
		write:    write,
		observer: observer,
		quiet:    QuietPeriod,
		log:      log,
	}
}

// SetQuietPeriod overrides the debounce window. Must be called before the
// first edit.
func (s *Saver) SetQuietPeriod(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiet = d
}

// Edit records the latest values for a note and restarts its quiet-period
// timer, cancelling any previously scheduled write for the same note.
func (s *Saver) Edit(noteID, title, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[noteID]
	if !ok {
		p = &pendingEdit{}
		s.pending[noteID] = p
	}
	p.title = title
	p.content = content

	if p.inFlight {
		// Buffered: a new cycle starts once the current write settles.
		p.dirty = true
		return
	}
	s.scheduleLocked(noteID, p)
}

// Close abandons the editing context for a note: the pending timer is
// cancelled and the unsaved edit is dropped. A write already in flight is
// allowed to complete; no new cycle follows it.
func (s *Saver) Close(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[noteID]
	if !ok {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.inFlight {
		// flush drops the record once the write settles.
		p.dirty = false
		return
	}
	delete(s.pending, noteID)
}

func (s *Saver) scheduleLocked(noteID string, p *pendingEdit) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(s.quiet, func() { s.flush(noteID) })
}

// flush issues the single write for a note's quiet period.
func (s *Saver) flush(noteID string) {
	s.mu.Lock()
	p, ok := s.pending[noteID]
	if !ok || p.inFlight {
		s.mu.Unlock()
		return
	}
	p.inFlight = true
	p.timer = nil
	title, content := p.title, p.content
	s.mu.Unlock()

	err := s.write(context.Background(), noteID, title, content)
	savedAt := time.Now()

	s.mu.Lock()
	p.inFlight = false
	if p.dirty {
		p.dirty = false
		s.scheduleLocked(noteID, p)
	} else {
		delete(s.pending, noteID)
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn(context.Background(), "autosave write failed", "noteId", noteID, "error", err)
		s.observer(noteID, time.Time{}, err)
		return
	}
	s.observer(noteID, savedAt, nil)
}

// Pending reports whether a note has an unsaved edit or an in-flight write.
func (s *Saver) Pending(noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[noteID]
	return ok
}
