package visualizer

import "errors"

// Error kinds. Every failure returned by the visualizer wraps exactly one of
// these; none of them leave the session unusable.
var (
	// ErrInvalidInput marks rejected user input such as a non-image upload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPrecondition marks actions attempted without the state they need.
	ErrPrecondition = errors.New("precondition failed")
	// ErrDecode marks an image that could not be decoded.
	ErrDecode = errors.New("decode failed")
)

// StatusError carries the user-facing message alongside the error kind.
type StatusError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *StatusError) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StatusError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// StatusMessage returns the user-facing message of err if it carries one.
func StatusMessage(err error) (string, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message, true
	}
	return "", false
}

func invalidInput(msg string, cause error) *StatusError {
	return &StatusError{Kind: ErrInvalidInput, Message: msg, Cause: cause}
}

func precondition(msg string) *StatusError {
	return &StatusError{Kind: ErrPrecondition, Message: msg}
}

func decodeFailure(msg string, cause error) *StatusError {
	return &StatusError{Kind: ErrDecode, Message: msg, Cause: cause}
}
