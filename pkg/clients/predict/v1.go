package predict

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/metrics"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type ClientV1 struct {
	config     *Config
	transport  Transport
	issuer     *RetryingIssuer
	metricTags []string
}

// NewClientV1 creates a client that talks to the prediction service over
// gRPC.
func NewClientV1(config *Config) (*ClientV1, error) {
	if ok, err := validConfigs(config); !ok {
		return nil, err
	}
	return newClientV1(config, NewGRPCTransport(config)), nil
}

// NewClientV1WithTransport creates a client over a caller-provided
// transport. Connection settings in config are ignored.
func NewClientV1WithTransport(config *Config, transport Transport) (*ClientV1, error) {
	if config == nil {
		return nil, fmt.Errorf("client config is nil")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is nil")
	}
	if ok, err := validRuntimeConfigs(config); !ok {
		return nil, err
	}
	return newClientV1(config, transport), nil
}

func newClientV1(config *Config, transport Transport) *ClientV1 {
	tags := metrics.BuildTag(
		metrics.NewTag(metrics.TagModelName, config.Model.Name),
		metrics.NewTag(metrics.TagModelVersion, strconv.FormatInt(config.Model.Version, 10)),
		metrics.NewTag(metrics.TagCallerId, config.CallerId),
	)

	var limiter *rate.Limiter
	if config.DispatchQPS > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.DispatchQPS), burst)
	}

	return &ClientV1{
		config:     config,
		transport:  transport,
		issuer:     NewRetryingIssuer(transport, config.Model, config.timeout(), config.RetryDelay, limiter, tags),
		metricTags: tags,
	}
}

// Predict splits inputs into batches of batchSize rows, runs them
// concurrently up to the configured capacity and returns the outputs
// reassembled in row order. If any batch fails after its retries, the
// failure with the lowest batch index is returned and no outputs are.
func (c *ClientV1) Predict(inputs map[string]tensor.Tensor, batchSize int) (map[string]tensor.Tensor, error) {
	startTime := time.Now()
	metrics.Incr(metrics.PredictRequestTotal, c.metricTags)
	defer metrics.TimingWithStart(metrics.PredictRequestLatency, startTime, c.metricTags)

	outputs, err := c.predict(inputs, batchSize)
	if err != nil {
		metrics.Incr(metrics.PredictRequestError, append(c.metricTags, metrics.TagAsString(metrics.TagErrorType, errorType(err))))
		return nil, err
	}
	return outputs, nil
}

func (c *ClientV1) predict(inputs map[string]tensor.Tensor, batchSize int) (map[string]tensor.Tensor, error) {
	totalRows, err := c.validateInputs(inputs, batchSize)
	if err != nil {
		return nil, err
	}
	if totalRows == 0 {
		return c.emptyOutputs(), nil
	}

	batches := PlanBatches(totalRows, batchSize)
	metrics.Count(metrics.BatchCount, int64(len(batches)), c.metricTags)

	gate := NewConcurrencyGate(c.config.Concurrency)
	collector := NewResultCollector(len(batches), gate)

	for i, batch := range batches {
		waitStart := time.Now()
		collector.ThrottleAcquire()
		metrics.TimingWithStart(metrics.GateWaitLatency, waitStart, c.metricTags)

		req := &InFlightRequest{
			Index:            i,
			Range:            batch,
			RetriesRemaining: c.config.MaxRetries,
		}
		go c.runBatch(collector, req, inputs)
	}

	results, errs := collector.WaitAll()
	if failure := firstFailure(batches, errs); failure != nil {
		log.Error().Err(failure.Err).
			Int("batch_index", failure.BatchIndex).
			Int("failed_batches", failure.FailedBatches).
			Int("total_batches", failure.TotalBatches).
			Str("model_name", c.config.Model.Name).
			Msg("Prediction failed")
		return nil, failure
	}
	return c.reassemble(results)
}

// runBatch owns one batch from payload construction to completion. Its
// single deferred exit records the outcome, counts the batch and releases
// the gate slot exactly once.
func (c *ClientV1) runBatch(collector *ResultCollector, req *InFlightRequest, inputs map[string]tensor.Tensor) {
	slot := ResultSlot{Index: req.Index}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("batch_index", req.Index).Msgf("Recovered from panic in batch processing: %v", r)
			slot = ResultSlot{Index: req.Index, Err: &TransportError{
				BatchIndex: req.Index,
				Err:        fmt.Errorf("panic in batch processing: %v", r),
			}}
		}
		collector.Complete(slot)
	}()

	payload, err := c.slicePayload(inputs, req.Range)
	if err != nil {
		slot = ResultSlot{Index: req.Index, Err: &TransportError{BatchIndex: req.Index, Err: err}}
		return
	}
	req.Payload = payload
	slot = c.issuer.Issue(req)
}

func (c *ClientV1) validateInputs(inputs map[string]tensor.Tensor, batchSize int) (int, error) {
	if batchSize < 1 {
		return 0, newValidationError("batch size must be positive, got %d", batchSize)
	}
	if len(inputs) == 0 {
		return 0, newValidationError("no inputs provided for model %s", c.config.Model.Name)
	}
	totalRows := -1
	firstKey := ""
	for _, key := range c.config.Model.InputKeys {
		input, ok := inputs[key]
		if !ok {
			return 0, newValidationError("input %q required by model %s is missing", key, c.config.Model.Name)
		}
		if err := input.Validate(); err != nil {
			return 0, newValidationError("input %q is malformed: %v", key, err)
		}
		if totalRows < 0 {
			totalRows, firstKey = input.Rows(), key
			continue
		}
		if input.Rows() != totalRows {
			return 0, newValidationError("input %q has %d rows but input %q has %d", key, input.Rows(), firstKey, totalRows)
		}
	}
	return totalRows, nil
}

func (c *ClientV1) slicePayload(inputs map[string]tensor.Tensor, batch BatchRange) (map[string]tensor.Tensor, error) {
	payload := make(map[string]tensor.Tensor, len(c.config.Model.InputKeys))
	for _, key := range c.config.Model.InputKeys {
		part, err := inputs[key].Slice(batch.Start, batch.End)
		if err != nil {
			return nil, fmt.Errorf("slicing input %q: %w", key, err)
		}
		payload[key] = part
	}
	return payload, nil
}

func (c *ClientV1) reassemble(results []OutputMap) (map[string]tensor.Tensor, error) {
	outputs := make(map[string]tensor.Tensor, len(c.config.Model.OutputKeys))
	for _, key := range c.config.Model.OutputKeys {
		parts := make([]tensor.Tensor, len(results))
		for i, result := range results {
			parts[i] = result[key]
		}
		combined, err := tensor.Concat(parts...)
		if err != nil {
			return nil, fmt.Errorf("reassembling output %q: %w", key, err)
		}
		outputs[key] = combined
	}
	return outputs, nil
}

func (c *ClientV1) emptyOutputs() map[string]tensor.Tensor {
	outputs := make(map[string]tensor.Tensor, len(c.config.Model.OutputKeys))
	for _, key := range c.config.Model.OutputKeys {
		outputs[key] = tensor.Tensor{Shape: []int64{0}, Values: []float64{}}
	}
	return outputs
}

func (c *ClientV1) Close() error {
	if closer, ok := c.transport.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// firstFailure picks the failed batch with the lowest index, independent of
// the order in which batches finished.
func firstFailure(batches []BatchRange, errs []error) *AggregateFailure {
	var failure *AggregateFailure
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if failure == nil {
			failure = &AggregateFailure{BatchIndex: i, Range: batches[i], Err: err}
		}
	}
	if failure != nil {
		failure.FailedBatches = failed
		failure.TotalBatches = len(batches)
	}
	return failure
}

func errorType(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "validation"
	case *AggregateFailure:
		return "aggregate_failure"
	default:
		return "unknown"
	}
}
