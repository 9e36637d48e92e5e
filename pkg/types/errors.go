package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record core errors. Structured error types below match these sentinels
// through errors.Is.
var (
	ErrSchema            = errors.New("schema error")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrInvalid           = errors.New("record is invalid")
	ErrNotFound          = errors.New("record not found")
	ErrNotPersisted      = errors.New("record is not persisted")
	ErrNoPrimaryKey      = errors.New("no primary key")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrStatement         = errors.New("statement failed")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrKeyRequired       = errors.New("primary key value required")
)

// Connection pool lifecycle errors.
var (
	ErrDetached        = errors.New("connection pool is detached")
	ErrAlreadyAttached = errors.New("connection pool is already attached")
)

// SchemaError reports a table whose shape cannot be turned into an entity
// type. It is raised while entity types are defined at startup.
type SchemaError struct {
	Table  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error for table %q: %s", e.Table, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func (e *SchemaError) Unwrap() error { return e.Err }

// TypeMismatchError reports a value whose Go type does not fit the declared
// type of an attribute.
type TypeMismatchError struct {
	Attribute string
	Want      ValueType
	Got       string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for attribute %q: want %s, got %s", e.Attribute, e.Want.GoType(), e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// UnknownAttributeError reports an attribute name the entity type does not declare.
type UnknownAttributeError struct {
	Entity    string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Entity, e.Attribute)
}

func (e *UnknownAttributeError) Is(target error) bool { return target == ErrUnknownAttribute }

// ValidationError carries the full messages of a failed validation pass.
type ValidationError struct {
	Entity   string
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Entity, strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// NotFoundError reports a finder miss.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s with key %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotPersistedError reports an operation that needs a stored row on a record
// that has none.
type NotPersistedError struct {
	Entity    string
	Operation string
}

func (e *NotPersistedError) Error() string {
	return fmt.Sprintf("cannot %s %s: record is not persisted", e.Operation, e.Entity)
}

func (e *NotPersistedError) Is(target error) bool { return target == ErrNotPersisted }

// ConnectionTimeoutError reports that no pooled connection became free in time.
type ConnectionTimeoutError struct {
	Waited time.Duration
}

func (e *ConnectionTimeoutError) Error() string {
	return fmt.Sprintf("connection timeout: no connection available after %s", e.Waited)
}

func (e *ConnectionTimeoutError) Is(target error) bool { return target == ErrConnectionTimeout }

// StatementError wraps a statement the database rejected.
type StatementError struct {
	Query string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed: %v (query: %s)", e.Err, e.Query)
}

func (e *StatementError) Is(target error) bool { return target == ErrStatement }

func (e *StatementError) Unwrap() error { return e.Err }
