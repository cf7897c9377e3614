package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/invoicebook/validation"
)

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not_found")

// NotFoundError reports a missing entity, or one owned by another user.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for entity.
func NotFound(entity string) error { return &NotFoundError{Entity: entity} }

// ValidationError carries the rejected fields of a request.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// validationErr returns nil when v is empty.
func validationErr(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Fields: v}
}

func invalid(field, code string) error {
	return &ValidationError{Fields: validation.Violations{field: code}}
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// persist wraps err as a PersistenceError unless it already carries a domain kind.
func persist(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var pe *PersistenceError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
