package api

import (
	"context"

	"github.com/knowledgebrain/knowbrain/internal/client/models"
)

// Client is the typed surface of the KnowBrain HTTP API consumed by the
// application services. Implementations attach the current credential and
// transparently retry once after a successful session renewal.
type Client interface {
	Register(ctx context.Context, email, password, displayName string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Refresh(ctx context.Context) (*models.AuthResponse, error)
	Logout(ctx context.Context) error

	ListNotes(ctx context.Context, page, size int) (*models.Page[models.Note], error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, req models.UpdateNoteRequest) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	SearchNotes(ctx context.Context, query string, page, size int) (*models.Page[models.NoteSearchResult], error)
}
