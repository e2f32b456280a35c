// Package services contains the application services for the KnowBrain
// client. This file defines the session service: register, login, logout,
// startup session bootstrap, and the derived session view.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/knowledgebrain/knowbrain/internal/client/api"
	"github.com/knowledgebrain/knowbrain/internal/client/auth"
	"github.com/knowledgebrain/knowbrain/internal/client/events"
	"github.com/knowledgebrain/knowbrain/internal/client/models"
	"github.com/knowledgebrain/knowbrain/internal/logging"
)

// channelController is the slice of the event channel the session service
// drives: it opens the channel after authentication and tears it down before
// the credential is cleared.
type channelController interface {
	Connect(ctx context.Context, h events.Handler) error
	Disconnect()
}

// Session is the derived view the UI reads: IsAuthenticated holds exactly
// when the credential store holds a live credential. TokenExpiresAt is the
// credential's unverified exp claim, zero when the token carries none; it is
// diagnostics only — renewal stays failure-driven.
type Session struct {
	UserID          string
	Email           string
	DisplayName     string
	TokenExpiresAt  time.Time
	IsAuthenticated bool
}

// AuthService owns the session lifecycle.
type AuthService struct {
	api     api.Client
	creds   *auth.Store
	channel channelController
	onEvent events.Handler
	log     logging.Logger
}

func NewAuthService(apiClient api.Client, creds *auth.Store, channel channelController, onEvent events.Handler, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AuthService{api: apiClient, creds: creds, channel: channel, onEvent: onEvent, log: log}
}

// Register creates an account and opens a session with the returned
// credential.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) error {
	resp, err := s.api.Register(ctx, email, password, displayName)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	s.openSession(ctx, resp)
	return nil
}

// Login authenticates and opens a session with the returned credential.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.openSession(ctx, resp)
	return nil
}

// Bootstrap tries to restore a session on startup from the out-of-band
// refresh cookie. Failure is not an error: the client simply starts
// unauthenticated.
func (s *AuthService) Bootstrap(ctx context.Context) bool {
	resp, err := s.api.Refresh(ctx)
	if err != nil {
		s.creds.Clear()
		s.log.Debug(ctx, "no session to restore", "error", err)
		return false
	}
	s.openSession(ctx, resp)
	return true
}

// Logout tears down the push channel, tells the server best-effort, and
// clears local state regardless of the server's answer. The channel comes
// down first so no reconnect attempt can carry the credential being retired.
func (s *AuthService) Logout(ctx context.Context) {
	s.channel.Disconnect()
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn(ctx, "server logout failed, clearing local session anyway", "error", err)
	}
	s.creds.Clear()
}

// Session returns the derived session view.
func (s *AuthService) Session() Session {
	id, ok := s.creds.Identity()
	if !ok {
		return Session{}
	}
	sess := Session{
		UserID:          id.UserID,
		Email:           id.Email,
		DisplayName:     id.DisplayName,
		IsAuthenticated: true,
	}
	if exp, ok := s.creds.ExpiresAt(); ok {
		sess.TokenExpiresAt = exp
	}
	return sess
}

func (s *AuthService) openSession(ctx context.Context, resp *models.AuthResponse) {
	s.creds.Set(resp.AccessToken, auth.Identity{
		UserID:      resp.UserID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	})
	if err := s.channel.Connect(ctx, s.onEvent); err != nil {
		// The channel heals itself; an unreachable push endpoint must not
		// block an otherwise successful login.
		s.log.Warn(ctx, "event channel connect failed", "error", err)
	}
}
