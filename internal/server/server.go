package server

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/logger"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/middleware"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/proto/prediction"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// InitServer serves the prediction service and the health endpoint on
// app_port until one of them fails, then exits the process.
func InitServer(configs *configs.AppConfigs, service prediction.PredictionServiceServer) {
	address := fmt.Sprintf("%d", configs.Configs.ApplicationPort)
	listener, err := net.Listen("tcp", ":"+address)
	if err != nil {
		logger.Panic("Failed to start batchinfer echo server!", err)
	}

	middleware.InitGRPCMiddleware(configs.Configs.EchoServer_RequireCaller)
	logger.Info(fmt.Sprintf("batchinfer echo server started at port on %s", address))
	if err := Serve(listener, service); err != nil {
		os.Exit(1)
	}
}

// Serve multiplexes gRPC and HTTP on listener and blocks until both have
// stopped.
func Serve(listener net.Listener, service prediction.PredictionServiceServer) error {
	mux := cmux.New(listener)
	grpcListener := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpListener := mux.Match(cmux.Any())

	grpcServer := NewGRPCServer(service)
	httpServer := &http.Server{
		Handler: newHTTPHandler(),
	}

	eps := make(chan error, 2)
	go func() { eps <- grpcServer.Serve(grpcListener) }()
	go func() { eps <- httpServer.Serve(httpListener) }()

	return handleErrors(mux, eps)
}

func NewGRPCServer(service prediction.PredictionServiceServer) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(middleware.RecoveryInterceptor, middleware.WrappedGRPCMiddleware),
	)
	reflection.Register(grpcServer)
	prediction.RegisterPredictionServiceServer(grpcServer, service)
	return grpcServer
}

func newHTTPHandler() http.Handler {
	h := http.NewServeMux()
	h.HandleFunc("/health/self", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "true")
	})
	return h
}

func handleErrors(mux cmux.CMux, eps chan error) error {
	var failure error
	if err := mux.Serve(); err != nil {
		logger.Error("cmux serve error", err)
		failure = err
	}
	for i := 0; i < cap(eps); i++ {
		if err := <-eps; err != nil {
			logger.Error("protocol serve error", err)
			if failure == nil {
				failure = err
			}
		}
	}
	return failure
}
