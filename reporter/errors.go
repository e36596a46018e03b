package reporter

import (
	"errors"
	"fmt"

	"github.com/simal-lang/simal/ast"
)

// ErrInvalidSource is a sentinel error returned when errors were
// reported but the configured ErrorReporter swallowed all of them.
var ErrInvalidSource = errors.New("parse failed: invalid SiMAL source")

// ErrorWithPos is an error about a SiMAL source file that includes
// information about the location in the file that caused the error.
//
// The value of Error() will contain both the SourcePos and the
// underlying error. The value of Unwrap() will only be the underlying
// error.
type ErrorWithPos interface {
	error
	GetPosition() ast.SourcePos
	Unwrap() error
}

// Error creates a new ErrorWithPos from the given error and source
// position.
func Error(pos ast.SourcePos, err error) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: err}
}

// Errorf creates a new ErrorWithPos whose underlying error is created
// using the given message format and arguments.
func Errorf(pos ast.SourcePos, format string, args ...any) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

type errorWithSourcePos struct {
	underlying error
	pos        ast.SourcePos
}

func (e errorWithSourcePos) Error() string {
	return fmt.Sprintf("%s: %v", e.GetPosition(), e.underlying)
}

func (e errorWithSourcePos) GetPosition() ast.SourcePos {
	return e.pos
}

func (e errorWithSourcePos) Unwrap() error {
	return e.underlying
}

var _ ErrorWithPos = errorWithSourcePos{}
