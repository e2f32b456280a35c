// Package cache holds the in-memory projection of notes that the UI reads.
//
// Three producers mutate it concurrently: paged fetch responses, direct CRUD
// responses, and server-pushed change events. A single mutex serializes all
// mutation so the last-write-wins semantics stay observable and deterministic.
//
// The push transport guarantees at-least-once delivery with no ordering
// across reconnects, so every event rule below is idempotent and tolerates
// out-of-order arrival. Events are applied by arrival order with no timestamp
// comparison; a stale duplicate arriving after a newer event can briefly
// regress a view. That weak-consistency trade-off is accepted: the next
// authoritative refetch replaces the page wholesale.
package cache

import (
	"sync"

	"github.com/knowledgebrain/knowbrain/internal/client/models"
)

// DefaultPageSize is used for the empty view state before the first fetch.
const DefaultPageSize = 20

// Store is the local collection cache. The primary listing, the search
// result listing and the single-note view are reconciled independently.
type Store struct {
	mu sync.RWMutex

	notes    []models.Note
	pageMeta models.PageMeta

	searchResults []models.NoteSearchResult
	searchMeta    models.PageMeta

	current *models.Note
}

func NewStore() *Store {
	return &Store{
		pageMeta:   models.EmptyPageMeta(DefaultPageSize),
		searchMeta: models.EmptyPageMeta(DefaultPageSize),
	}
}

// SetPage replaces the primary listing with an authoritative snapshot.
// A refetch always wins over cached state; nothing is merged field by field.
func (s *Store) SetPage(page *models.Page[models.Note]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append([]models.Note(nil), page.Content...)
	s.pageMeta = page.Meta()
}

// SetSearchPage replaces the search result listing. The primary listing is
// never touched; the two views must not cross-contaminate.
func (s *Store) SetSearchPage(page *models.Page[models.NoteSearchResult]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchResults = append([]models.NoteSearchResult(nil), page.Content...)
	s.searchMeta = page.Meta()
}

// SetCurrent replaces the single-note view.
func (s *Store) SetCurrent(n *models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		s.current = nil
		return
	}
	cp := *n
	s.current = &cp
}

// ClearCurrent drops the single-note view (entity view closed).
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Prepend inserts a locally created note at the head of the primary listing
// and bumps the total count. No-op when the id is already present (the push
// event for our own write may have arrived first).
func (s *Store) Prepend(n models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prependLocked(n)
}

// Replace swaps the cached copy of a note in the primary listing, the search
// listing and the single-note view, wherever the id is present. Views that
// do not hold the id are left untouched.
func (s *Store) Replace(n models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(n)
}

// Remove deletes the id from the primary listing, decrements the total count
// and clears the single-note view if it was showing that id. Unknown ids are
// a silent no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// Apply reconciles one pushed change event into the cache.
//
// Created events are only ever prepended to the primary listing; search
// result membership is decided solely by the server's ranking response.
func (s *Store) Apply(ev models.NoteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case models.EventCreated:
		if ev.Note != nil {
			s.prependLocked(*ev.Note)
		}
	case models.EventUpdated:
		if ev.Note != nil {
			s.replaceLocked(*ev.Note)
		}
	case models.EventDeleted:
		s.removeLocked(ev.NoteID)
	}
}

func (s *Store) prependLocked(n models.Note) {
	for i := range s.notes {
		if s.notes[i].ID == n.ID {
			return
		}
	}
	s.notes = append([]models.Note{n}, s.notes...)
	s.pageMeta.TotalElements++
}

func (s *Store) replaceLocked(n models.Note) {
	for i := range s.notes {
		if s.notes[i].ID == n.ID {
			s.notes[i] = n
			break
		}
	}
	for i := range s.searchResults {
		if s.searchResults[i].ID == n.ID {
			// Rank and headline stay server-owned; only the note payload moves.
			s.searchResults[i].Note = n
			break
		}
	}
	if s.current != nil && s.current.ID == n.ID {
		cp := n
		s.current = &cp
	}
}

func (s *Store) removeLocked(id string) {
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			if s.pageMeta.TotalElements > 0 {
				s.pageMeta.TotalElements--
			}
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
}

// Notes returns a copy of the primary listing.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Note(nil), s.notes...)
}

// PageMeta returns the pagination state of the primary listing.
func (s *Store) PageMeta() models.PageMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageMeta
}

// SearchResults returns a copy of the search result listing.
func (s *Store) SearchResults() []models.NoteSearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NoteSearchResult(nil), s.searchResults...)
}

// SearchMeta returns the pagination state of the search listing.
func (s *Store) SearchMeta() models.PageMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchMeta
}

// Current returns a copy of the single-note view, or nil when closed.
func (s *Store) Current() *models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}
