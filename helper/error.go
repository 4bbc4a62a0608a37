package helper

import "fmt"

// Error tags an underlying error with the operation that failed, so log
// lines and wrapped chains read as "error in load chunks sql: ...".
type Error struct {
	Operation string
	Err       error
}

// NewError wraps err with the name of the failed operation.
func NewError(operation string, err error) *Error {
	return &Error{Operation: operation, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("error in %s: %v", e.Operation, e.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}
