package database

import "errors"

// ErrReadOnly is returned by ExecuteQuery for anything but a SELECT.
var ErrReadOnly = errors.New("only SELECT queries are allowed")

// ValidationError reports bad input detected before the engine is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EngineError wraps a failure reported by the SQL engine. The message is the
// engine's own text, unchanged.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a validation failure, including
// ErrReadOnly.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrReadOnly)
}
