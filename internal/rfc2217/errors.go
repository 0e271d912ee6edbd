package rfc2217

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a programming error: nil command, out-of-range code, unsupported value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedMessage reports a wire value that failed validation or table lookup.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnsupportedCommand reports a wire command code with no decoder.
	ErrUnsupportedCommand = errors.New("unsupported command")
	// ErrInternal reports an encode of a value that was never validated against its code table.
	ErrInternal = errors.New("internal consistency error")
)

// MalformedMessageError carries the offending raw wire value.
type MalformedMessageError struct {
	What  string
	Value int
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %s: %d", e.What, e.Value)
}

func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}

// UnsupportedCommandError names the unrecognized command code.
type UnsupportedCommandError struct {
	Code byte
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("unsupported command: %d", e.Code)
}

func (e *UnsupportedCommandError) Is(target error) bool {
	return target == ErrUnsupportedCommand
}

func malformed(what string, value int) error {
	return &MalformedMessageError{What: what, Value: value}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
