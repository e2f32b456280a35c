package models

import "time"

// EventType discriminates server-pushed change notifications.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// NoteEvent is a change notification delivered over the push channel.
// Note is nil for DELETED events. Delivery may be duplicated or reordered
// across reconnects; consumers must tolerate both.
type NoteEvent struct {
	Type      EventType `json:"type"`
	NoteID    string    `json:"noteId"`
	Note      *Note     `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}
