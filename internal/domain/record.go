package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TweetRecord is the geocoded form of one Post. Records are built once by
// NewTweetRecord and not modified afterwards.
type TweetRecord struct {
	ID          string     `json:"id"`
	Created     time.Time  `json:"created_at"`
	Address     string     `json:"address"`
	Geo         Resolution `json:"geo"`
	Body        string     `json:"body"`
	ProcessedAt time.Time  `json:"processed_at"`
}

// NewTweetRecord merges a post with its extracted address and resolution. The
// body is kept verbatim, not lower-cased.
func NewTweetRecord(post Post, address string, geo Resolution) TweetRecord {
	return TweetRecord{
		ID:          post.ID,
		Created:     post.CreatedAt,
		Address:     address,
		Geo:         geo,
		Body:        post.Body,
		ProcessedAt: clock.Now(),
	}
}

// Lat returns the exported latitude, 0 when unresolved.
func (r TweetRecord) Lat() float64 {
	lat, _ := r.Geo.Coordinates()
	return lat
}

// Lng returns the exported longitude, 0 when unresolved.
func (r TweetRecord) Lng() float64 {
	_, lng := r.Geo.Coordinates()
	return lng
}

// SerializeTweetRecord marshals a record into an OutputEvent keyed by post ID.
func SerializeTweetRecord(r TweetRecord) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize tweet record: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.ID),
		Value: data,
		Headers: map[string]string{
			"status":       string(r.Geo.Status),
			"processed_at": r.ProcessedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// Summary counts the outcome of a run.
type Summary struct {
	Total      int
	Unresolved int
	ByStatus   map[ResolutionStatus]int
}

// Summarize tallies records by resolution status.
func Summarize(records []TweetRecord) Summary {
	s := Summary{
		Total:    len(records),
		ByStatus: make(map[ResolutionStatus]int),
	}
	for _, r := range records {
		s.ByStatus[r.Geo.Status]++
		if !r.Geo.Resolved() {
			s.Unresolved++
		}
	}
	return s
}

// String renders the operator-facing summary line.
func (s Summary) String() string {
	return fmt.Sprintf("%d tweets parsed, %d tweets have error.", s.Total, s.Unresolved)
}
