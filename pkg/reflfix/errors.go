package reflfix

import(
	"github.com/pkg/errors"
)

// ErrorKind says which class of failure an Error is; callers use it to
// decide whether a whole run is hopeless or just this one input.
type ErrorKind int

const(
	ErrUnknown      ErrorKind = iota
	ErrValidation             // bad arguments, file names or file contents
	ErrPlausibility           // the numbers came out physically meaningless
	ErrIO                     // couldn't open, read, decode or write something
)

func (k ErrorKind)String() string {
	switch k {
	case ErrValidation:   return "validation"
	case ErrPlausibility: return "plausibility"
	case ErrIO:           return "io"
	default:              return "unknown"
	}
}

// An Error carries a kind along with a human readable message.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error)Error() string { return e.Err.Error() }
func (e *Error)Unwrap() error { return e.Err }
func (e *Error)Cause() error  { return e.Err }

func NewValidationError(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Err: errors.Errorf(format, args...)}
}

func NewPlausibilityError(format string, args ...interface{}) error {
	return &Error{Kind: ErrPlausibility, Err: errors.Errorf(format, args...)}
}

func WrapIOError(err error, format string, args ...interface{}) error {
	return &Error{Kind: ErrIO, Err: errors.Wrapf(err, format, args...)}
}

// KindOf finds the outermost Error in the chain; ErrUnknown if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrUnknown
}

func IsKind(err error, k ErrorKind) bool { return err != nil && KindOf(err) == k }
