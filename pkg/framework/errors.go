package framework

import (
	"fmt"
	"strings"
)

// AggregatedError collects the shutdown errors of concurrently running
// parts, labeled by the part that failed.
type AggregatedError struct {
	Errors []error
}

// Error implements error. Errors are joined on one line so a daemon
// exit logs as a single entry.
func (e *AggregatedError) Error() string {
	msg := make([]string, len(e.Errors))
	for n, err := range e.Errors {
		msg[n] = err.Error()
	}
	return strings.Join(msg, "; ")
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// AddLabeled adds an error prefixed with the name of the failing part.
// nil will be skipped.
func (e *AggregatedError) AddLabeled(label string, err error) *AggregatedError {
	if err != nil {
		e.Errors = append(e.Errors, fmt.Errorf("%s: %v", label, err))
	}
	return e
}

// Aggregate returns the aggregated error, or nil if nothing failed.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
