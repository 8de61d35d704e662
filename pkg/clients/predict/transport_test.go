package predict

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/proto/prediction"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type recordingServer struct {
	prediction.UnimplementedPredictionServiceServer
	adapter Adapter
	fail    bool

	mu       sync.Mutex
	calls    int
	callerId string
	token    string
}

func (s *recordingServer) seen() (calls int, callerId, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.callerId, s.token
}

func (s *recordingServer) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		s.mu.Lock()
		s.calls++
		if v := md.Get(prediction.HeaderCallerID); len(v) > 0 {
			s.callerId = v[0]
		}
		if v := md.Get(prediction.HeaderCallerToken); len(v) > 0 {
			s.token = v[0]
		}
		s.mu.Unlock()
	}
	if s.fail {
		return nil, status.Error(codes.Unavailable, "model not loaded")
	}
	req, err := s.adapter.MapProtoToRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	outputs := OutputMap{}
	for _, key := range req.OutputKeys {
		outputs[key] = req.Inputs["x"].Map(func(v float64) float64 { return v * 2 })
	}
	return s.adapter.MapOutputsToProto(req.Model, outputs, "id")
}

func startBufconnServer(t *testing.T, srv prediction.PredictionServiceServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	prediction.RegisterPredictionServiceServer(server, srv)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCTransport_Dispatch(t *testing.T) {
	srv := &recordingServer{}
	transport := NewGRPCTransportFromConn(startBufconnServer(t, srv), "caller-1", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := transport.Dispatch(ctx, &DispatchRequest{
		Model:      testModel(),
		Inputs:     map[string]tensor.Tensor{"x": tensor.Vector(1, 2, 3)},
		OutputKeys: []string{"y"},
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, out["y"].Values)
	calls, callerId, token := srv.seen()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "caller-1", callerId)
	assert.Equal(t, "secret", token)
	assert.NoError(t, transport.Close())
}

func TestGRPCTransport_ServerError(t *testing.T) {
	transport := NewGRPCTransportFromConn(startBufconnServer(t, &recordingServer{fail: true}), "caller-1", "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := transport.Dispatch(ctx, &DispatchRequest{
		Model:      testModel(),
		Inputs:     map[string]tensor.Tensor{"x": tensor.Vector(1)},
		OutputKeys: []string{"y"},
	})

	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestClientV1_OverGRPC(t *testing.T) {
	srv := &recordingServer{}
	transport := NewGRPCTransportFromConn(startBufconnServer(t, srv), "caller-1", "")
	client, err := NewClientV1WithTransport(testConfig(), transport)
	require.NoError(t, err)

	out, err := client.Predict(map[string]tensor.Tensor{"x": column(7)}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, out["y"].Shape)
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10, 12}, out["y"].Values)
	calls, callerId, _ := srv.seen()
	assert.Equal(t, 4, calls)
	assert.Equal(t, "caller-1", callerId)
}
