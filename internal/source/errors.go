package source

import "fmt"

// ValidationError reports a target rejected before any I/O took place
type ValidationError struct {
	Target  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Target, e.Message)
}

// ConnectionError reports a backend that could not be reached or refused
// the supplied credentials. It aborts the scan.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a target that is missing or has nothing to scan.
// It aborts the scan.
type NotFoundError struct {
	Target  string
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Target, e.Message)
}

// PartialReadError reports one unit that could not be read. Scans skip it
// and carry on.
type PartialReadError struct {
	Unit string
	Err  error
}

func (e *PartialReadError) Error() string {
	return fmt.Sprintf("skipped %s: %v", e.Unit, e.Err)
}

func (e *PartialReadError) Unwrap() error {
	return e.Err
}
