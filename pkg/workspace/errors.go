package workspace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is wrapped by every NotFoundError.
	ErrNotFound = errors.New("module not found")

	// ErrUnanalyzable reports a module that resolved to a compiled unit with
	// no source to show.
	ErrUnanalyzable = errors.New("unable to analyze native module")

	// ErrFetchFailed is wrapped by every FetchError.
	ErrFetchFailed = errors.New("dependency fetch failed")
)

// NotFoundError carries the name and search directories of a failed
// resolution. Cause holds the fetch failure, if one happened on the way.
type NotFoundError struct {
	Name  string
	Dirs  []string
	Cause error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("module %q not found", e.Name)
	if len(e.Dirs) > 0 {
		msg += " in " + strings.Join(e.Dirs, ", ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Cause}
}

// FetchError reports a download or unpack failure for a package.
type FetchError struct {
	Package string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Package, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}
