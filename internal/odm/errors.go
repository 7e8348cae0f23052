// Package odm is a minimal object-document mapper over the embedded document
// store. Entity types declare a Schema (field transforms, visibility and
// validation); the generic Collection applies those declarations uniformly in
// its create/find/update/destroy path.
//
// The package never logs. Every failure is reported to the caller as one of
// three kinds: ErrNotFound, *ValidationError or *DatabaseError. Callers should
// use errors.Is / errors.As to match them.
package odm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by Find, Update and Destroy when no document
// matches the filter.
var ErrNotFound = errors.New("model not found")

// ValidationError reports declarative rule violations found in a create
// payload. It maps each offending field to the list of human-readable rule
// messages it violated. A payload that fails validation is never persisted,
// not even partially.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return "validation failed on " + strings.Join(fields, ", ")
}

// DatabaseError wraps a storage failure: a rejected insert (for example a
// uniqueness violation) or any other error raised by the document store.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }
