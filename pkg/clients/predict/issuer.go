package predict

import (
	"context"
	"fmt"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/metrics"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RetryingIssuer sends one batch, retrying failed attempts after a fixed
// delay until the request's retry budget is spent.
type RetryingIssuer struct {
	transport  Transport
	model      ModelSpec
	timeout    time.Duration
	retryDelay time.Duration
	limiter    *rate.Limiter
	metricTags []string
}

func NewRetryingIssuer(transport Transport, model ModelSpec, timeout, retryDelay time.Duration, limiter *rate.Limiter, metricTags []string) *RetryingIssuer {
	return &RetryingIssuer{
		transport:  transport,
		model:      model,
		timeout:    timeout,
		retryDelay: retryDelay,
		limiter:    limiter,
		metricTags: metricTags,
	}
}

// Issue runs req to a terminal outcome: at most req.RetriesRemaining+1
// attempts, each with its own timeout.
func (r *RetryingIssuer) Issue(req *InFlightRequest) ResultSlot {
	attempts := 0
	var lastErr error

	policy := retrypolicy.Builder[OutputMap]().
		WithMaxRetries(req.RetriesRemaining).
		WithDelay(r.retryDelay).
		OnRetry(func(failsafe.ExecutionEvent[OutputMap]) {
			req.RetriesRemaining--
			metrics.Incr(metrics.BatchRetryTotal, r.metricTags)
			log.Warn().Err(lastErr).
				Int("batch_index", req.Index).
				Int("attempt", attempts).
				Int("retries_remaining", req.RetriesRemaining).
				Str("model_name", r.model.Name).
				Msg("Retrying batch after failed attempt")
		}).
		Build()

	value, err := failsafe.Get(func() (OutputMap, error) {
		attempts++
		out, attemptErr := r.attempt(req)
		lastErr = attemptErr
		return out, attemptErr
	}, policy)

	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		metrics.Incr(metrics.BatchFailureTotal, r.metricTags)
		log.Error().Err(err).
			Int("batch_index", req.Index).
			Int("attempts", attempts).
			Str("model_name", r.model.Name).
			Msg("Batch failed, retries exhausted")
		return ResultSlot{Index: req.Index, Err: &TransportError{BatchIndex: req.Index, Attempts: attempts, Err: err}}
	}
	return ResultSlot{Index: req.Index, Value: value}
}

func (r *RetryingIssuer) attempt(req *InFlightRequest) (out OutputMap, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("panic in batch dispatch: %v", rec)
		}
	}()

	if r.limiter != nil {
		if err := r.limiter.Wait(context.Background()); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	outputs, err := r.transport.Dispatch(ctx, &DispatchRequest{
		Model:      r.model,
		Inputs:     req.Payload,
		OutputKeys: r.model.OutputKeys,
	})
	if err != nil {
		return nil, err
	}
	if err := checkOutputs(outputs, r.model.OutputKeys, req.Range.Rows()); err != nil {
		return nil, err
	}
	return outputs, nil
}

// checkOutputs verifies every requested key is present with one row per
// input row.
func checkOutputs(outputs OutputMap, keys []string, rows int) error {
	for _, key := range keys {
		out, ok := outputs[key]
		if !ok {
			return fmt.Errorf("output %q missing from response", key)
		}
		if err := out.Validate(); err != nil {
			return fmt.Errorf("output %q: %w", key, err)
		}
		if out.Rows() != rows {
			return fmt.Errorf("output %q has %d rows, expected %d", key, out.Rows(), rows)
		}
	}
	return nil
}
