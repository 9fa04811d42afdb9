package domain

import "time"

// Post is a single timeline entry as supplied by the timeline collaborator.
type Post struct {
	ID        string    `json:"id"`
	Body      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// OutputEvent is the serialized form of a record destined for a message sink.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
