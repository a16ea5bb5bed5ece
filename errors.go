package huf

import (
	"github.com/nuclio/errors"
)

// ErrorCode classifies every failure reported by this package. ErrorCode
// implements error, so the constants below work as sentinels; returned
// errors wrap them with context and Code recovers the category.
type ErrorCode int

const (
	NoError ErrorCode = iota
	ErrGeneric
	ErrDestinationTooSmall
	ErrSourceTooLarge
	ErrTableLogTooLarge
	ErrTableLogInvalid
	ErrAlphabetTooLarge
	ErrEmptyInput
	ErrCorruptHeader
	ErrCorruptStream
	ErrWorkspaceTooSmall

	maxErrorCode
)

var errorNames = [maxErrorCode]string{
	NoError:                "no error",
	ErrGeneric:             "generic error",
	ErrDestinationTooSmall: "destination buffer is too small",
	ErrSourceTooLarge:      "source block is too large",
	ErrTableLogTooLarge:    "table log is too large",
	ErrTableLogInvalid:     "table log is invalid",
	ErrAlphabetTooLarge:    "symbol alphabet is too large",
	ErrEmptyInput:          "input is empty",
	ErrCorruptHeader:       "table header is corrupted",
	ErrCorruptStream:       "compressed stream is corrupted",
	ErrWorkspaceTooSmall:   "workspace is too small",
}

func (c ErrorCode) Error() string {
	return "huf: " + c.String()
}

func (c ErrorCode) String() string {
	if c < 0 || c >= maxErrorCode {
		return errorNames[ErrGeneric]
	}
	return errorNames[c]
}

// Code returns the category of err: NoError for nil, the wrapped ErrorCode
// for errors produced by this package and ErrGeneric for anything else.
func Code(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	if code, ok := errors.RootCause(err).(ErrorCode); ok {
		return code
	}
	return ErrGeneric
}

// IsError reports whether err carries a failure.
func IsError(err error) bool {
	return Code(err) != NoError
}

// ErrorName returns the human readable name of the category of err.
func ErrorName(err error) string {
	return Code(err).String()
}
