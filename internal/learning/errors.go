package learning

import (
	"errors"
	"fmt"
)

// Sentinel errors for the learning engine.
var (
	ErrProfileNotFound  = errors.New("learning profile not found")
	ErrModelNotFound    = errors.New("prediction model not found")
	ErrMalformedInsight = errors.New("malformed insight response")
	ErrStateCorruption  = errors.New("stored learning state is corrupted")
	ErrMissingUserID    = errors.New("user_id is required")
)

// StateError reports stored state that could not be recovered. It always
// wraps ErrStateCorruption.
type StateError struct {
	UserID string
	Field  string
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("user %s: %s: %v", e.UserID, e.Field, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

func corrupted(userID, field string, cause error) *StateError {
	if cause == nil {
		return &StateError{UserID: userID, Field: field, Err: ErrStateCorruption}
	}
	return &StateError{UserID: userID, Field: field, Err: fmt.Errorf("%w: %v", ErrStateCorruption, cause)}
}

// NewStateError reports unrecoverable stored state for userID. Store
// backends use it so callers can match on ErrStateCorruption.
func NewStateError(userID, field string, cause error) *StateError {
	return corrupted(userID, field, cause)
}
