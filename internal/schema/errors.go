package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural reports a nested, unopened or unterminated table block
	ErrStructural = errors.New("malformed table block")

	// ErrUnrecognizedDeclaration reports a table line that is neither a column nor a key
	ErrUnrecognizedDeclaration = errors.New("unrecognized declaration")

	// ErrDuplicateName reports a column or key declared twice in one table
	ErrDuplicateName = errors.New("duplicate name")
)

// ParseError carries the position of a failed line
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
