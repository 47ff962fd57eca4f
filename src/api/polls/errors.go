package polls

import "errors"

// Failure modes of the poll operations. Callers branch on these, so
// they are never collapsed into a generic error.
var (
	ErrNotFound       = errors.New("poll not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrExpired        = errors.New("poll has expired")
	ErrAlreadyVoted   = errors.New("already voted in this poll")
	ErrInvalidOption  = errors.New("invalid option selected")
	ErrTooManyOptions = errors.New("too many options selected")
)

// ValidationError reports malformed create-poll input with a message
// fit to show the user as-is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(msg string) error { return &ValidationError{Msg: msg} }
