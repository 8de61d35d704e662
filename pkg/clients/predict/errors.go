package predict

import (
	"errors"
	"fmt"
)

var ErrNilRequest = errors.New("predict request cannot be nil")

// ValidationError reports malformed caller input. It is raised before any
// batch is dispatched and is never retried.
type ValidationError struct {
	ErrorMsg string
}

func (e *ValidationError) Error() string {
	return e.ErrorMsg
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{ErrorMsg: fmt.Sprintf(format, args...)}
}

// TransportError is the terminal failure of one batch after its retries ran
// out. Err is the error of the last attempt.
type TransportError struct {
	BatchIndex int
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempt(s): %v", e.BatchIndex, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AggregateFailure is returned by Predict when at least one batch failed
// terminally. It carries the failure with the lowest batch index so the
// reported error does not depend on completion order.
type AggregateFailure struct {
	BatchIndex    int
	Range         BatchRange
	FailedBatches int
	TotalBatches  int
	Err           error
}

func (e *AggregateFailure) Error() string {
	return fmt.Sprintf("prediction failed: %d of %d batches failed, first failure at batch %d rows [%d, %d): %v",
		e.FailedBatches, e.TotalBatches, e.BatchIndex, e.Range.Start, e.Range.End, e.Err)
}

func (e *AggregateFailure) Unwrap() error {
	return e.Err
}
