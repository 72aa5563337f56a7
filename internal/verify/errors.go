package verify

import "fmt"

// ValidationError is a client fault found before any decoding.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ReferenceMissingError means the reference image could not be found. It is a
// server misconfiguration, not a client fault.
type ReferenceMissingError struct {
	Location string
	Err      error
}

func (e *ReferenceMissingError) Error() string {
	return fmt.Sprintf("reference image not found at %s", e.Location)
}

func (e *ReferenceMissingError) Unwrap() error { return e.Err }
