package predict

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/stretchr/testify/mock"
)

func testModel() ModelSpec {
	return ModelSpec{
		Name:          "ranker",
		Version:       3,
		SignatureName: "serving_default",
		InputKeys:     []string{"x"},
		OutputKeys:    []string{"y"},
	}
}

func testConfig() *Config {
	return &Config{
		CallerId:    "test-caller",
		DeadLineMs:  500,
		Concurrency: 2,
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
		Model:       testModel(),
	}
}

// doublingTransport answers every request with y = 2*x, optionally after a
// random delay, and tracks how many dispatches overlap.
type doublingTransport struct {
	maxDelay time.Duration
	failFor  func(req *DispatchRequest) error

	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64

	mu  sync.Mutex
	rng *rand.Rand
}

func newDoublingTransport(maxDelay time.Duration) *doublingTransport {
	return &doublingTransport{maxDelay: maxDelay, rng: rand.New(rand.NewSource(42))}
}

func (d *doublingTransport) Dispatch(ctx context.Context, req *DispatchRequest) (OutputMap, error) {
	d.calls.Add(1)
	current := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		peak := d.peak.Load()
		if current <= peak || d.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if d.maxDelay > 0 {
		d.mu.Lock()
		delay := time.Duration(d.rng.Int63n(int64(d.maxDelay)))
		d.mu.Unlock()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.failFor != nil {
		if err := d.failFor(req); err != nil {
			return nil, err
		}
	}
	x, ok := req.Inputs["x"]
	if !ok {
		return nil, fmt.Errorf("input x missing")
	}
	out := OutputMap{}
	for _, key := range req.OutputKeys {
		out[key] = x.Map(func(v float64) float64 { return v * 2 })
	}
	return out, nil
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Dispatch(ctx context.Context, req *DispatchRequest) (OutputMap, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(OutputMap)
	return out, args.Error(1)
}

func column(n int) tensor.Tensor {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return tensor.Vector(values...)
}
