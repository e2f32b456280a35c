package services

import (
	"context"
	"fmt"
	"time"

	"github.com/knowledgebrain/knowbrain/internal/client/api"
	"github.com/knowledgebrain/knowbrain/internal/client/autosave"
	"github.com/knowledgebrain/knowbrain/internal/client/cache"
	"github.com/knowledgebrain/knowbrain/internal/client/models"
	"github.com/knowledgebrain/knowbrain/internal/logging"
)

// NoteService is the write path into the collection cache: paged fetches,
// direct CRUD, search, debounced editor autosave, and the push event hook.
// The cache itself is the single source of truth the UI reads.
type NoteService struct {
	api   api.Client
	cache *cache.Store
	saver *autosave.Saver
	log   logging.Logger
}

func NewNoteService(apiClient api.Client, store *cache.Store, observer autosave.Observer, log logging.Logger) *NoteService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &NoteService{api: apiClient, cache: store, log: log}
	s.saver = autosave.NewSaver(s.persistEdit, observer, log)
	return s
}

// persistEdit is the autosave write: one update call carrying the latest
// recorded values, merged into the cache on success.
func (s *NoteService) persistEdit(ctx context.Context, noteID, title, content string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req := models.UpdateNoteRequest{Title: &title, Content: &content}
	n, err := s.api.UpdateNote(ctx, noteID, req)
	if err != nil {
		return err
	}
	s.cache.Replace(*n)
	return nil
}

// FetchPage loads one page of the primary listing and replaces the cached
// view with it.
func (s *NoteService) FetchPage(ctx context.Context, page, size int) error {
	p, err := s.api.ListNotes(ctx, page, size)
	if err != nil {
		return fmt.Errorf("fetching notes: %w", err)
	}
	s.cache.SetPage(p)
	return nil
}

// Open loads a single note into the single-note view.
func (s *NoteService) Open(ctx context.Context, id string) (*models.Note, error) {
	n, err := s.api.GetNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching note: %w", err)
	}
	s.cache.SetCurrent(n)
	return n, nil
}

// Create issues the write and prepends the server's note to the listing.
func (s *NoteService) Create(ctx context.Context, title, content string) (*models.Note, error) {
	req := models.CreateNoteRequest{Title: title}
	if content != "" {
		req.Content = &content
	}
	n, err := s.api.CreateNote(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}
	s.cache.Prepend(*n)
	return n, nil
}

// Update issues a direct (non-debounced) write and merges the result.
func (s *NoteService) Update(ctx context.Context, id string, title, content *string) (*models.Note, error) {
	n, err := s.api.UpdateNote(ctx, id, models.UpdateNoteRequest{Title: title, Content: content})
	if err != nil {
		return nil, fmt.Errorf("updating note: %w", err)
	}
	s.cache.Replace(*n)
	return n, nil
}

// Delete removes the note remotely and locally.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	s.saver.Close(id)
	s.cache.Remove(id)
	return nil
}

// Search loads one page of server-ranked results into the search view; the
// primary listing is unaffected.
func (s *NoteService) Search(ctx context.Context, query string, page, size int) error {
	p, err := s.api.SearchNotes(ctx, query, page, size)
	if err != nil {
		return fmt.Errorf("searching notes: %w", err)
	}
	s.cache.SetSearchPage(p)
	return nil
}

// Edit feeds one keystroke-level edit into the debounced autosave cycle.
func (s *NoteService) Edit(noteID, title, content string) {
	s.saver.Edit(noteID, title, content)
}

// CloseNote abandons the editing context: pending autosave is dropped and
// the single-note view is cleared.
func (s *NoteService) CloseNote(id string) {
	s.saver.Close(id)
	s.cache.ClearCurrent()
}

// HandleEvent is the push channel hook; it reconciles one server-originated
// change into the cache.
func (s *NoteService) HandleEvent(ev models.NoteEvent) {
	s.log.Debug(context.Background(), "applying change event", "type", string(ev.Type), "noteId", ev.NoteID)
	s.cache.Apply(ev)
}

// Cache exposes the read side for the UI.
func (s *NoteService) Cache() *cache.Store {
	return s.cache
}
