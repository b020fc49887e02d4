package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLog is matched by every MalformedLogError.
	ErrMalformedLog = errors.New("malformed build log")

	// ErrUnknownHandler is returned for handler names missing from the registry.
	ErrUnknownHandler = errors.New("unknown log handler")
)

// MalformedLogError reports a log without any recognizable dependency structure.
type MalformedLogError struct {
	Handler string
	Lines   int
}

func (e *MalformedLogError) Error() string {
	if e.Lines == 0 {
		return fmt.Sprintf("%s: log is empty", ErrMalformedLog)
	}
	return fmt.Sprintf("%s: no dependency events recognized in %d lines (handler %q)", ErrMalformedLog, e.Lines, e.Handler)
}

func (e *MalformedLogError) Unwrap() error {
	return ErrMalformedLog
}
