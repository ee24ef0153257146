package core

import "github.com/pkg/errors"

// FieldError pins a validation failure to a single request field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field failures so the transport layer can
// answer with a field -> message map instead of a bare string.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// shutdown asks the app to stop: whatever it wraps cannot be recovered from
// at the call site, a dead DB connection being the usual case.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err (or its cause) requests an app shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
