package main

import (
	"context"
	"errors"
	"os"

	"github.com/pdiddy/paper-fetch/internal/discover"
	"github.com/pdiddy/paper-fetch/internal/ledger"
	"github.com/pdiddy/paper-fetch/internal/secrets"
)

// Exit codes. Papers that could not be resolved or downloaded do not change
// the exit code; they are reported in the ledger.
const (
	ExitSuccess     = 0   // Success, including runs with failed papers
	ExitError       = 1   // General error (runtime failure before or outside the run)
	ExitConfigError = 2   // Configuration error (bad flags, missing input, malformed input, missing credential)
	ExitInterrupted = 130 // Run interrupted by a signal; the ledger holds finished papers
)

// errConfig marks invalid flag or config values.
var errConfig = errors.New("invalid configuration")

type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }
func (e configError) Is(target error) bool {
	return target == errConfig
}

// configErr wraps err so exitCode maps it to ExitConfigError.
func configErr(err error) error {
	if err == nil {
		return nil
	}
	return configError{err}
}

// exitCode maps the error returned by a command to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, errConfig),
		errors.Is(err, ledger.ErrMalformedInput),
		errors.Is(err, secrets.ErrMissingCredential),
		errors.Is(err, discover.ErrEmptyQuery),
		errors.Is(err, os.ErrNotExist):
		return ExitConfigError
	default:
		return ExitError
	}
}
