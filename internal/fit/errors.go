package fit

import (
	"errors"
	"fmt"
)

var (
	ErrNotConverged     = errors.New("did not converge")
	ErrSingular         = errors.New("singular jacobian")
	ErrDomain           = errors.New("model outside numerical domain")
	ErrInsufficientData = errors.New("insufficient data")
	ErrBadInput         = errors.New("bad input")
)

// FailureKind classifies a failed fit.
type FailureKind int

const (
	NonConvergence FailureKind = iota
	DomainError
	InvalidInput
)

func (k FailureKind) String() string {
	switch k {
	case NonConvergence:
		return "non-convergence"
	case DomainError:
		return "domain error"
	case InvalidInput:
		return "invalid input"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure is the error returned by Fit. One failure never affects another
// fit; callers record it and move on.
type Failure struct {
	Model      Model
	Kind       FailureKind
	Iterations int
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s fit: %s after %d iterations: %v", f.Model, f.Kind, f.Iterations, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}
