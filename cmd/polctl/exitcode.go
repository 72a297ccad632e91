package main

import (
	"context"
	"errors"

	"github.com/test-acc-vaccym/pol/internal/container"
	"github.com/test-acc-vaccym/pol/internal/safe"
)

// exitCode maps a core error to the CLI exit code table in spec.md
// §6.4. The core itself never knows about exit codes; this is the one
// place that translation happens.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, safe.ErrSafeAlreadyExists):
		return -10
	case errors.Is(err, safe.ErrSafeNotFound):
		return -5
	case errors.Is(err, safe.ErrSafeLocked):
		return -6
	case errors.Is(err, safe.ErrSafeFormat):
		return -13
	case errors.Is(err, errNoMatchingContainer):
		return -1
	case errors.Is(err, safe.ErrNoAppendPermission), errors.Is(err, container.ErrMissingKey):
		return -2
	case errors.Is(err, safe.ErrEmptyInput), errors.Is(err, container.ErrEmptyInput):
		return -3
	case errors.Is(err, safe.ErrNoSuchEntry), errors.Is(err, container.ErrNoSuchEntry):
		return -4
	case errors.Is(err, safe.ErrMultipleMatches):
		return -8
	case errors.Is(err, safe.ErrClipboardUnavailable):
		return -7
	case errors.Is(err, safe.ErrUnsafeParameter):
		return -9
	case errors.Is(err, safe.ErrDestinationExists):
		return -11
	case errors.Is(err, errUserInterrupt), errors.Is(err, context.Canceled):
		return -14
	default:
		return -12
	}
}

// errNoMatchingContainer and errUserInterrupt have no equivalent
// sentinel in internal/safe (the core reports "no container matched"
// by returning an empty slice, not an error — spec.md Testable
// Property 6) and internal/container (Ctrl-C handling is purely a CLI
// concern), so cmd/polctl defines its own markers for the exit-code
// table's remaining two rows.
var (
	errNoMatchingContainer = errors.New("polctl: password did not open any container")
	errUserInterrupt       = errors.New("polctl: interrupted")
)
