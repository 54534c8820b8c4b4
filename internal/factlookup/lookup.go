// Package factlookup answers whether a subject identifier belongs to a living
// person. Backends are interchangeable behind the Lookup interface and can be
// wrapped with a hard timeout and a cache.
package factlookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SubjectIDLength is the number of digits of a normalized identifier.
const SubjectIDLength = 9

var (
	// ErrInvalidSubjectID matches every InvalidSubjectIDError.
	ErrInvalidSubjectID = errors.New("invalid subject id")

	// ErrLookupUnavailable matches every UnavailableError.
	ErrLookupUnavailable = errors.New("lookup unavailable")
)

// Lookup returns the fact for a normalized subject identifier.
// A definitive answer is (value, nil). Any non-authoritative outcome must be
// reported as an UnavailableError, never as false.
type Lookup interface {
	Lookup(ctx context.Context, subjectID string) (bool, error)
}

// Func adapts a function to Lookup.
type Func func(ctx context.Context, subjectID string) (bool, error)

// Lookup implements Lookup.
func (f Func) Lookup(ctx context.Context, subjectID string) (bool, error) {
	return f(ctx, subjectID)
}

// InvalidSubjectIDError reports an identifier that does not normalize to
// exactly nine digits.
type InvalidSubjectIDError struct {
	Input string // Input is the identifier as given
}

// Error implements error.
func (e *InvalidSubjectIDError) Error() string {
	return fmt.Sprintf("SSN %q is not valid. Must contain %d numbers", e.Input, SubjectIDLength)
}

// Is matches ErrInvalidSubjectID.
func (e *InvalidSubjectIDError) Is(target error) bool {
	return target == ErrInvalidSubjectID
}

// UnavailableError reports that the backend produced no authoritative answer.
type UnavailableError struct {
	SubjectID string // SubjectID is the normalized identifier looked up
	Reason    string // Reason describes what went wrong
	Err       error  // Err is the underlying cause, if any
}

// Error implements error.
func (e *UnavailableError) Error() string {
	msg := "lookup unavailable: " + e.Reason
	if e.SubjectID != "" {
		msg = fmt.Sprintf("lookup of %s unavailable: %s", e.SubjectID, e.Reason)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is matches ErrLookupUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrLookupUnavailable
}

// Normalize strips separators from an identifier and checks that exactly
// nine digits remain. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) (string, error) {
	var b strings.Builder
	b.Grow(SubjectIDLength)

	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '-' || r == ' ' || r == '.':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", &InvalidSubjectIDError{Input: s}
		}
	}

	if b.Len() != SubjectIDLength {
		return "", &InvalidSubjectIDError{Input: s}
	}

	return b.String(), nil
}

// Split breaks a normalized identifier into its 3-2-4 digit groups.
func Split(subjectID string) (area, group, serial string, err error) {
	n, err := Normalize(subjectID)
	if err != nil {
		return "", "", "", err
	}

	return n[0:3], n[3:5], n[5:9], nil
}
