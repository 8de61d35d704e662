package middleware

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/logger"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/metrics"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/proto/prediction"
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	reqHeadersToLog = linkedhashset.New(prediction.HeaderCallerID)
	requireCaller   bool
)

// InitGRPCMiddleware configures whether requests without a caller id are
// rejected.
func InitGRPCMiddleware(requireCallerId bool) {
	requireCaller = requireCallerId
}

func WrappedGRPCMiddleware(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (resp interface{}, err error) {
	startTime := time.Now()

	md, _ := metadata.FromIncomingContext(ctx)
	if err := authorize(md); err != nil {
		telemetryMiddleware(info, time.Since(startTime), status.Code(err))
		return nil, err
	}
	method := info.FullMethod
	requestHeaders, _ := json.Marshal(filterGRPCHeaders(md))

	resp, err = handler(ctx, req)
	statusCode := codes.OK
	if err != nil {
		statusCode = status.Code(err)
	}
	responseTime := time.Since(startTime)

	logVariables := []string{
		method,
		strconv.Itoa(int(statusCode)),
		responseTime.String(),
		string(requestHeaders),
	}
	if err != nil {
		logger.Error(strings.Join(logVariables, " | "), err)
	} else {
		log.Debug().Msg(strings.Join(logVariables, " | "))
	}
	telemetryMiddleware(info, responseTime, statusCode)
	return resp, err
}

func RecoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("service", info.FullMethod).
				Msgf("Recovered in recovery interceptor with err: %v, stack: %s", r, string(debug.Stack()))
			err = status.Errorf(codes.Internal, "Internal server error")
		}
	}()
	return handler(ctx, req)
}

func authorize(md metadata.MD) error {
	if !requireCaller {
		return nil
	}
	if v := md.Get(prediction.HeaderCallerID); len(v) == 0 || v[0] == "" {
		return status.Errorf(codes.Unauthenticated, "missing %s header", prediction.HeaderCallerID)
	}
	return nil
}

func filterGRPCHeaders(md metadata.MD) map[string][]string {
	filteredHeaders := make(map[string][]string)
	for k, v := range md {
		if reqHeadersToLog.Contains(k) {
			filteredHeaders[k] = v
		}
	}
	return filteredHeaders
}

func telemetryMiddleware(info *grpc.UnaryServerInfo, responseTime time.Duration, statusCode codes.Code) {
	tags := metrics.BuildTag(
		metrics.NewTag(metrics.TagApi, info.FullMethod),
		metrics.NewTag(metrics.TagStatus, strconv.Itoa(int(statusCode))),
	)
	metrics.Timing(metrics.ServerRequestLatency, responseTime, tags)
	metrics.Incr(metrics.ServerRequestTotal, tags)
}
