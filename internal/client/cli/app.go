package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/knowledgebrain/knowbrain/internal/client/api"
	"github.com/knowledgebrain/knowbrain/internal/client/auth"
	"github.com/knowledgebrain/knowbrain/internal/client/cache"
	"github.com/knowledgebrain/knowbrain/internal/client/config"
	"github.com/knowledgebrain/knowbrain/internal/client/events"
	"github.com/knowledgebrain/knowbrain/internal/client/models"
	"github.com/knowledgebrain/knowbrain/internal/client/services"
	"github.com/knowledgebrain/knowbrain/internal/logging"
)

// authService is the slice of the session service the CLI drives.
type authService interface {
	Register(ctx context.Context, email, password, displayName string) error
	Login(ctx context.Context, email, password string) error
	Bootstrap(ctx context.Context) bool
	Logout(ctx context.Context)
	Session() services.Session
}

// noteService is the slice of the note service the CLI drives.
type noteService interface {
	FetchPage(ctx context.Context, page, size int) error
	Open(ctx context.Context, id string) (*models.Note, error)
	Create(ctx context.Context, title, content string) (*models.Note, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, page, size int) error
	Edit(noteID, title, content string)
	CloseNote(id string)
	Cache() *cache.Store
}

type App struct {
	config  *config.Config
	auth    authService
	notes   noteService
	channel *events.Channel
	reader  *bufio.Reader
	log     logging.Logger
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	creds := auth.NewStore()
	apiClient := api.NewHTTPClient(c.ServerBaseURL, creds, &http.Client{Timeout: c.RequestTimeout}, log)

	ns := services.NewNoteService(apiClient, cache.NewStore(), func(noteID string, savedAt time.Time, err error) {
		if err != nil {
			log.Warn(context.Background(), "autosave failed", "noteId", noteID, "error", err)
			return
		}
		log.Debug(context.Background(), "autosave complete", "noteId", noteID, "savedAt", savedAt)
	}, log)

	channel := events.NewChannel(c.WebSocketURL, creds, log)
	as := services.NewAuthService(apiClient, creds, channel, ns.HandleEvent, log)

	return &App{
		config:  c,
		auth:    as,
		notes:   ns,
		channel: channel,
		reader:  bufio.NewReader(os.Stdin),
		log:     log,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.auth.Session().IsAuthenticated
}

// getStatus renders the prompt suffix: the signed-in email plus a live
// marker while the push channel is up, or nothing when logged out.
func (a *App) getStatus() string {
	s := a.auth.Session()
	if !s.IsAuthenticated {
		return ""
	}
	if a.channel != nil && a.channel.Connected() {
		return fmt.Sprintf("(%s live)", s.Email)
	}
	return fmt.Sprintf("(%s)", s.Email)
}

// Run restores the previous session if the refresh cookie is still valid,
// then blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to KnowBrain CLI (type 'help' for commands)")

	if a.auth.Bootstrap(ctx) {
		printlnFn("Session restored for", a.auth.Session().Email)
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)

	if a.isLoggedIn() {
		a.auth.Logout(ctx)
	}
}
