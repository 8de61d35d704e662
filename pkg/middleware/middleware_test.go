package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/proto/prediction"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/batchinfer.v1.PredictionService/Predict"}

func TestWrappedGRPCMiddleware_Authorize(t *testing.T) {
	t.Cleanup(func() { InitGRPCMiddleware(false) })
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	InitGRPCMiddleware(true)
	_, err := WrappedGRPCMiddleware(context.Background(), nil, testInfo, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(prediction.HeaderCallerID, "caller"))
	resp, err := WrappedGRPCMiddleware(ctx, nil, testInfo, handler)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)

	InitGRPCMiddleware(false)
	resp, err = WrappedGRPCMiddleware(context.Background(), nil, testInfo, handler)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestWrappedGRPCMiddleware_PassesHandlerError(t *testing.T) {
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "down")
	}
	_, err := WrappedGRPCMiddleware(context.Background(), nil, testInfo, handler)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	_, err := RecoveryInterceptor(context.Background(), nil, testInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	plain := errors.New("plain")
	_, err = RecoveryInterceptor(context.Background(), nil, testInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, plain
	})
	assert.Equal(t, plain, err)
}

func TestFilterGRPCHeaders(t *testing.T) {
	md := metadata.Pairs(prediction.HeaderCallerID, "caller", "authorization", "secret")
	assert.Equal(t, map[string][]string{prediction.HeaderCallerID: {"caller"}}, filterGRPCHeaders(md))
}
