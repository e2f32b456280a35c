// Package auth owns the in-memory credential store and the single-flight
// session renewal gate.
//
// The access token lives in process memory only and is never written to
// durable storage; losing it on restart is a deliberate security property.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated user as reported by the server.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// Store holds the current short-lived access credential and the identity it
// belongs to. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	token    string
	identity Identity
	present  bool
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored credential and identity.
func (s *Store) Set(token string, id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = id
	s.present = true
}

// Token returns the current credential. The second return value is false
// when no credential is held.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.present
}

// Identity returns the identity bound to the current credential.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.present
}

// Clear drops the credential and identity. Called on logout and on failed
// renewal.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = Identity{}
	s.present = false
}

// ExpiresAt reports the exp claim of the stored token, for diagnostics only.
// The claim is read without signature verification; renewal is still driven
// by server rejections, never by this value. Returns false when no token is
// held or the token carries no parseable expiry.
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	token := s.token
	present := s.present
	s.mu.RUnlock()

	if !present {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
