package distill

import (
	"errors"
	"strings"

	"github.com/poltergeist/distill/pkg/paths"
)

// Sentinel errors for distillation operations.
// Every failure returned by the engine wraps exactly one of these.
var (
	// ErrNotFound indicates a missing source file or search directory
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the destination file is already present
	ErrAlreadyExists = errors.New("destination already exists")

	// ErrInvalidArgument indicates a malformed exclusion token or a path
	// outside its claimed base
	ErrInvalidArgument = paths.ErrInvalidArgument

	// ErrEmptyResult indicates a selection copied nothing although absence
	// was not allowed
	ErrEmptyResult = errors.New("no files selected")

	// ErrIntegrity indicates the destination was not present after copying
	ErrIntegrity = errors.New("integrity check failed")
)

// Error carries the failing operation and the paths involved
type Error struct {
	Op    string
	Paths []string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if len(e.Paths) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(e.Paths, " -> "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, err error, involved ...string) error {
	return &Error{Op: op, Paths: involved, Err: err}
}
