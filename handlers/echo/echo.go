package echo

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/clients/predict"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/proto/prediction"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/rs/zerolog/log"
	"github.com/spaolacci/murmur3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Echo serves a stand-in model: every requested output is an input scaled
// by Factor. An output named like an input echoes that input, any other
// output echoes the first input in key order.
type Echo struct {
	prediction.UnimplementedPredictionServiceServer
	adapter     predict.Adapter
	Factor      float64
	Latency     time.Duration
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEcho(factor float64, latency time.Duration, failureRate float64) *Echo {
	return &Echo{
		Factor:      factor,
		Latency:     latency,
		FailureRate: failureRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func InitEchoHandler(configs *configs.AppConfigs) *Echo {
	c := configs.Configs
	log.Info().
		Float64("factor", c.EchoServer_Factor).
		Int("latency_ms", c.EchoServer_LatencyMs).
		Float64("failure_rate", c.EchoServer_FailureRate).
		Msg("Echo model initialised")
	return NewEcho(c.EchoServer_Factor, time.Duration(c.EchoServer_LatencyMs)*time.Millisecond, c.EchoServer_FailureRate)
}

func (e *Echo) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if e.Latency > 0 {
		select {
		case <-time.After(e.Latency):
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	if e.shouldFail() {
		return nil, status.Error(codes.Unavailable, "injected failure")
	}

	req, err := e.adapter.MapProtoToRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(req.Inputs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "request has no inputs")
	}
	if len(req.OutputKeys) == 0 {
		return nil, status.Error(codes.InvalidArgument, "request has no output filter")
	}

	inputKeys := sortedKeys(req.Inputs)
	outputs := make(predict.OutputMap, len(req.OutputKeys))
	for _, key := range req.OutputKeys {
		source, ok := req.Inputs[key]
		if !ok {
			source = req.Inputs[inputKeys[0]]
		}
		outputs[key] = source.Map(func(v float64) float64 { return v * e.Factor })
	}

	resp, err := e.adapter.MapOutputsToProto(req.Model, outputs, Fingerprint(req.Inputs))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (e *Echo) shouldFail() bool {
	if e.FailureRate <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < e.FailureRate
}

// Fingerprint is a murmur3 hash over the inputs in key order; equal inputs
// give equal fingerprints.
func Fingerprint(inputs map[string]tensor.Tensor) string {
	h := murmur3.New64()
	buf := make([]byte, 8)
	for _, key := range sortedKeys(inputs) {
		_, _ = h.Write([]byte(key))
		t := inputs[key]
		for _, dim := range t.Shape {
			binary.LittleEndian.PutUint64(buf, uint64(dim))
			_, _ = h.Write(buf)
		}
		for _, v := range t.Values {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			_, _ = h.Write(buf)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func sortedKeys(inputs map[string]tensor.Tensor) []string {
	keys := make([]string, 0, len(inputs))
	for key := range inputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
