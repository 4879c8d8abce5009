package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
)

var (
	ErrValidation       = errors.New("validation error")
	ErrDuplicateSeat    = errors.New("seat already selected")
	ErrCapacityExceeded = errors.New("no seats available")
	ErrIncompleteDraft  = errors.New("booking draft is incomplete")
	ErrPersistence      = errors.New("persistence failure")
	ErrSubmitInProgress = errors.New("booking submission already in progress")
	ErrDraftNotStarted  = errors.New("booking draft has no event")
)

// ValidationError carries one message per invalid field, keyed by the field's
// JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return fmt.Sprintf("validation error: %s", strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type IncompleteDraftError struct {
	Missing []string
}

func (e *IncompleteDraftError) Error() string {
	return fmt.Sprintf("booking draft is incomplete: missing %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteDraftError) Is(target error) bool {
	return target == ErrIncompleteDraft
}
