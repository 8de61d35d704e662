package predict

import (
	"context"
	"fmt"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/grpcclient"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/proto/prediction"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Transport performs one attempt of one batch. The deadline of the attempt
// travels in ctx.
type Transport interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (OutputMap, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *DispatchRequest) (OutputMap, error)

func (f TransportFunc) Dispatch(ctx context.Context, req *DispatchRequest) (OutputMap, error) {
	return f(ctx, req)
}

// GRPCTransport sends batches to a PredictionService.
type GRPCTransport struct {
	adapter     Adapter
	callerId    string
	callerToken string
	conn        *grpcclient.GRPCClient
	grpcClient  prediction.PredictionServiceClient
}

func NewGRPCTransport(config *Config) *GRPCTransport {
	conn := grpcclient.NewConnFromConfig(&grpcclient.Config{
		Host:      config.Host,
		Port:      config.Port,
		DeadLine:  config.DeadLineMs,
		PlainText: config.PlainText,
	}, V1Prefix)

	t := NewGRPCTransportFromConn(conn, config.CallerId, config.CallerToken)
	t.conn = conn
	return t
}

// NewGRPCTransportFromConn uses an existing connection, which the caller
// keeps ownership of.
func NewGRPCTransportFromConn(cc grpc.ClientConnInterface, callerId, callerToken string) *GRPCTransport {
	return &GRPCTransport{
		adapter:     Adapter{},
		callerId:    callerId,
		callerToken: callerToken,
		grpcClient:  prediction.NewPredictionServiceClient(cc),
	}
}

func (t *GRPCTransport) Dispatch(ctx context.Context, req *DispatchRequest) (OutputMap, error) {
	protoReq, err := t.adapter.MapRequestToProto(req)
	if err != nil {
		return nil, fmt.Errorf("failed to map request to proto: %w", err)
	}

	md := metadata.New(map[string]string{prediction.HeaderCallerID: t.callerId})
	if t.callerToken != "" {
		md.Set(prediction.HeaderCallerToken, t.callerToken)
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	resp, err := t.grpcClient.Predict(ctx, protoReq)
	if err != nil {
		return nil, err
	}
	return t.adapter.MapProtoToOutputs(resp, req.OutputKeys)
}

func (t *GRPCTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
