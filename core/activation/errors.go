package activation

import (
	"github.com/pkg/errors"
)

var (
	// errors
	ErrUnknownKind         = errors.New("unknown principal kind")
	ErrUnknownStaffRole    = errors.New("unknown staff role")
	ErrPrincipalNotFound   = errors.New("principal not found")
	ErrStudentCodeExists   = errors.New("a student with this code already exists")
	ErrNoEmail             = errors.New("an email address is required to send the invitation")
	ErrAlreadyActivated    = errors.New("account already activated")
	ErrTokenNotFound       = errors.New("activation token not found")
	ErrTokenExpired        = errors.New("activation token expired")
	ErrStudentCodeMismatch = errors.New("student code does not match any linked student")

	// external failures
	ErrInvitationFailed       = errors.New("could not send the invitation")
	ErrIdentityCreationFailed = errors.New("could not create the account")
	ErrLinkingFailed          = errors.New("could not link the account")
)

// Failure is an external failure of the activation flow.
// errors.Cause returns Reason; Unwrap returns the underlying error.
type Failure struct {
	Reason error
	Err    error
}

func fail(reason, err error) error {
	return &Failure{Reason: reason, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Reason.Error()
	}
	return f.Reason.Error() + ": " + f.Err.Error()
}

func (f *Failure) Cause() error  { return f.Reason }
func (f *Failure) Unwrap() error { return f.Err }

// IsNotFoundOrExpired reports whether err means the token is unknown, consumed, superseded or expired.
func IsNotFoundOrExpired(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrTokenNotFound || cause == ErrTokenExpired
}

// IsExternalFailure reports whether err is a *Failure.
func IsExternalFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}
