package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("entity: validation failed")

	// ErrEntityMismatch is returned when a record's discriminator does not name the decoding entity.
	ErrEntityMismatch = errors.New("entity: discriminator mismatch")

	// ErrEmptyRecord is returned when serialization yields no attributes.
	ErrEmptyRecord = errors.New("entity: empty record")

	// ErrMissingKeyValue is returned when a key field carries no value.
	ErrMissingKeyValue = errors.New("entity: key field has no value")

	// ErrUnknownEntity is returned when no decoder is registered for a discriminator.
	ErrUnknownEntity = errors.New("entity: unknown entity")
)

// FieldError describes one offending field.
type FieldError struct {
	// Field is the attribute path, e.g. "delivery_address.city".
	Field string `json:"field"`

	// Tag is the failed rule ("required", "email", "oneof", "type", ...).
	Tag string `json:"tag"`

	Message string `json:"message"`
}

// ValidationError lists every field of an entity that failed validation.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("entity: invalid %s: %s", e.Entity, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, tag, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Tag: tag, Message: msg})
}

// has reports whether field, or a parent of it, was already reported.
func (e *ValidationError) has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field || strings.HasPrefix(field, f.Field+".") {
			return true
		}
	}
	return false
}
