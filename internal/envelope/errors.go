package envelope

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed envelopes and deltas: missing fields,
	// wrong JSON types or an empty cursor.
	ErrValidation = errors.New("envelope validation failed")

	// ErrIntegrity marks deltas whose checksum does not match their payload.
	ErrIntegrity = errors.New("envelope integrity check failed")
)

// Issue is a single validation problem located by its JSON path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// ValidationError lists every structural problem found in an envelope or
// delta. It matches [ErrValidation] with errors.Is.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(path, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// IntegrityError reports the indexes of deltas whose checksum does not
// match the recomputed one. It matches [ErrIntegrity] with errors.Is.
type IntegrityError struct {
	Indexes []int
}

func (e *IntegrityError) Error() string {
	idx := make([]string, 0, len(e.Indexes))
	for _, i := range e.Indexes {
		idx = append(idx, fmt.Sprintf("deltas[%d]", i))
	}
	return fmt.Sprintf("%s: checksum mismatch at %s", ErrIntegrity, strings.Join(idx, ", "))
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
