package namelist

import (
	"errors"
	"fmt"
)

var (
	// ErrValueNotParsed indicates a token that matches none of the scalar
	// literal grammars.
	ErrValueNotParsed = errors.New("namelist: value not parsed")

	// ErrEmptyGroupName indicates a group written without a name.
	ErrEmptyGroupName = errors.New("namelist: empty group name")
)

// ValueNotParsedError carries the token that failed to parse.
type ValueNotParsedError struct {
	Token string
}

func (e *ValueNotParsedError) Error() string {
	return fmt.Sprintf("namelist: value not parsed: %q", e.Token)
}

func (e *ValueNotParsedError) Is(target error) bool {
	return target == ErrValueNotParsed
}

// ParseError reports a malformed line inside a namelist file.
type ParseError struct {
	Group string
	Line  int
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("namelist: line %d", e.Line)
	if e.Group != "" {
		msg += fmt.Sprintf(" (group %s)", e.Group)
	}
	msg += fmt.Sprintf(": %q", e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
