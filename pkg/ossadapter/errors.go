package ossadapter

import "fmt"

// Error is returned for problems the adapter detects itself. Backend failures are
// never wrapped in it.
type Error struct {
	Code    string // Machine-readable error code
	Message string // Human-readable message
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrConfiguration)
// holds for every configuration failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrConfiguration is returned by New when the adapter cannot be built
	ErrConfiguration = &Error{Code: "CONFIGURATION_ERROR", Message: "adapter configuration is invalid"}

	// ErrInvalidArgument is returned when an operation is called without its required input
	ErrInvalidArgument = &Error{Code: "INVALID_ARGUMENT", Message: "required argument is missing"}
)

func newError(kind *Error, format string, args ...interface{}) *Error {
	return &Error{Code: kind.Code, Message: fmt.Sprintf(format, args...)}
}
