package errors

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrClosed is returned for operations submitted after the database was closed.
var ErrClosed = errors.New("database is closed")

// ErrCorruptSnapshot marks a persisted snapshot value that does not parse.
// It never leaves the store: Load reports it as a cache miss.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

type OpenError struct {
	path string
	err  error
}

func NewOpenError(path string, err error) *OpenError {
	return &OpenError{path: path, err: err}
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open database %q: %v", e.path, e.err)
}

func (e *OpenError) Unwrap() error {
	return e.err
}

func IsOpenError(err error) bool {
	var e *OpenError
	return errors.As(err, &e)
}

type StatementError struct {
	query string
	err   error
}

func NewStatementError(query string, err error) *StatementError {
	return &StatementError{query: query, err: err}
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed: %v", e.err)
}

func (e *StatementError) Unwrap() error {
	return e.err
}

func (e *StatementError) Query() string {
	return e.query
}

// IsConstraint reports whether the engine rejected the statement because of a
// constraint (unique, primary key, not null, check).
func (e *StatementError) IsConstraint() bool {
	var sqliteErr *sqlite.Error
	if !errors.As(e.err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func IsStatementError(err error) bool {
	var e *StatementError
	return errors.As(err, &e)
}

type BatchError struct {
	index int
	size  int
	err   error
}

func NewBatchError(index, size int, err error) *BatchError {
	return &BatchError{index: index, size: size, err: err}
}

func (e *BatchError) Error() string {
	if e.index < 0 {
		return fmt.Sprintf("batch of %d statements rolled back: %v", e.size, e.err)
	}
	return fmt.Sprintf("batch of %d statements rolled back at statement %d: %v", e.size, e.index, e.err)
}

func (e *BatchError) Unwrap() error {
	return e.err
}

// Index returns the position of the failing statement, or -1 when the failure
// happened while beginning or committing the transaction.
func (e *BatchError) Index() int {
	return e.index
}

func IsBatchError(err error) bool {
	var e *BatchError
	return errors.As(err, &e)
}

type ResourceNotFoundError struct {
	resource string
	id       string
}

func NewResourceNotFoundError(resource, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{resource: resource, id: id}
}

func NewScanNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("scan", id)
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.resource, e.id)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// ValidationError rejects input before it reaches the database.
type ValidationError struct {
	field  string
	reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{field: field, reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.field, e.reason)
}

func (e *ValidationError) Field() string {
	return e.field
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

type InstanceLockedError struct {
	path string
}

func NewInstanceLockedError(path string) *InstanceLockedError {
	return &InstanceLockedError{path: path}
}

func (e *InstanceLockedError) Error() string {
	return fmt.Sprintf("another instance holds the lock %q", e.path)
}

func IsInstanceLockedError(err error) bool {
	var e *InstanceLockedError
	return errors.As(err, &e)
}
