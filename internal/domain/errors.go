package domain

import "fmt"

// Collaborator names used in CollaboratorError.
const (
	CollaboratorTimeline   = "timeline"
	CollaboratorGeocoder   = "geocoder"
	CollaboratorExport     = "export"
	CollaboratorCheckpoint = "checkpoint"
)

// CollaboratorError reports a transport or service failure in an external
// collaborator. It is fatal for a run, unlike an unresolved address which is
// recorded in the Resolution.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

// NewCollaboratorError wraps err, or returns nil when err is nil.
func NewCollaboratorError(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
