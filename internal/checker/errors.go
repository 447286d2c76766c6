package checker

import (
	"errors"
	"fmt"
)

// AdapterErrorKind categorizes adapter failures.
type AdapterErrorKind string

const (
	// KindTimeout indicates the invocation outlived its deadline.
	KindTimeout AdapterErrorKind = "timeout"

	// KindCrash indicates the analyzer failed to run, exited with a code
	// outside the accepted set, died on a signal, or panicked.
	KindCrash AdapterErrorKind = "crash"

	// KindMalformedOutput indicates the analyzer output could not be decoded.
	KindMalformedOutput AdapterErrorKind = "malformed-output"
)

// AdapterError is the typed failure of one analyzer invocation.
// It turns into an Error verdict for the case, never a Fail.
type AdapterError struct {
	Kind AdapterErrorKind

	// Case is the category code of the case being analyzed.
	Case string

	Err error

	// Stderr is the tail of the analyzer's standard error, if any.
	Stderr string
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("adapter %s", e.Kind)
	if e.Case != "" {
		msg += ": " + e.Case
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func kindOf(err error) AdapterErrorKind {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsTimeout returns true if err is an adapter timeout.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

// IsCrash returns true if err is an analyzer crash.
func IsCrash(err error) bool {
	return kindOf(err) == KindCrash
}

// IsMalformedOutput returns true if the analyzer output could not be decoded.
func IsMalformedOutput(err error) bool {
	return kindOf(err) == KindMalformedOutput
}
