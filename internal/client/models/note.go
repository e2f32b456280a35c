// Package models defines the data structures exchanged with the KnowBrain
// server and projected into the local collection cache.
package models

import "time"

// Note is a single note as returned by the server. The id is server-assigned
// and never changes; UpdatedAt is refreshed on every write.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   *string   `json:"content"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteSearchResult is a note enriched with the server's ranking data.
// Membership in a search result page is decided solely by the server.
type NoteSearchResult struct {
	Note
	Rank     float64 `json:"rank"`
	Headline string  `json:"headline"`
}

// CreateNoteRequest is the payload for POST /api/notes.
type CreateNoteRequest struct {
	Title   string  `json:"title"`
	Content *string `json:"content,omitempty"`
}

// UpdateNoteRequest is the payload for PUT /api/notes/{id}. Nil fields are
// omitted and left unchanged by the server.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
