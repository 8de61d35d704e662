package grpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const defaultLoadBalancingPolicy = "round_robin"

type Config struct {
	Host                string
	Port                string
	DeadLine            int
	LoadBalancingPolicy string
	PlainText           bool
}

type GRPCClient struct {
	Conn      *grpc.ClientConn
	DeadLine  int64
	envPrefix string
}

func NewConnFromConfig(config *Config, envPrefix string) *GRPCClient {
	conn, err := getGRPCConnections(*config)
	if err != nil {
		log.Panic().Msgf("error while GRPC connection initialization from config - %#v. error - %s", config, err)
	}
	conn.envPrefix = envPrefix
	return conn
}

// NewConn builds the connection from <envPrefix>HOST, PORT, DEADLINE_MS,
// PLAINTEXT and LOAD_BALANCING_POLICY.
func NewConn(envPrefix string) *GRPCClient {
	config := newConfig(envPrefix)
	conn, err := getGRPCConnections(*config)
	if err != nil {
		log.Panic().Msgf("error while %s GRPC connection initialization. %s", envPrefix, err)
	}
	conn.envPrefix = envPrefix
	return conn
}

func newConfig(envPrefix string) *Config {
	config := &Config{
		PlainText: false,
	}
	if !viper.IsSet(envPrefix + "HOST") {
		log.Panic().Msg(envPrefix + "HOST not set")
	}
	if !viper.IsSet(envPrefix + "PORT") {
		log.Panic().Msg(envPrefix + "PORT not set")
	}
	if !viper.IsSet(envPrefix + "DEADLINE_MS") {
		log.Panic().Msg(envPrefix + "DEADLINE_MS not set")
	}
	if viper.IsSet(envPrefix + "PLAINTEXT") {
		config.PlainText = viper.GetBool(envPrefix + "PLAINTEXT")
	}
	if viper.IsSet(envPrefix + "LOAD_BALANCING_POLICY") {
		config.LoadBalancingPolicy = viper.GetString(envPrefix + "LOAD_BALANCING_POLICY")
	} else {
		config.LoadBalancingPolicy = defaultLoadBalancingPolicy
	}
	config.Host = viper.GetString(envPrefix + "HOST")
	config.Port = viper.GetString(envPrefix + "PORT")
	config.DeadLine = viper.GetInt(envPrefix + "DEADLINE_MS")
	return config
}

func getGRPCConnections(config Config) (*GRPCClient, error) {
	if config.Host == "" {
		return nil, errors.New("host is not set")
	}
	if config.Port == "" {
		return nil, errors.New("port is not set")
	}
	if config.DeadLine <= 0 {
		return nil, errors.New("deadline is not set or is negative")
	}
	if config.LoadBalancingPolicy == "" {
		log.Warn().Msgf("Load balancing policy is not set for %s. Setting it to round robin", config.Host)
		config.LoadBalancingPolicy = defaultLoadBalancingPolicy
	}

	var creds credentials.TransportCredentials
	if config.PlainText {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	}
	gConn, err := grpc.NewClient(config.Host+":"+config.Port,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"`+config.LoadBalancingPolicy+`"}`),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{Conn: gConn, DeadLine: int64(config.DeadLine)}, nil
}

// Invoke wraps grpc.ClientConn.Invoke and records latency and count metrics
// for the external service.
func (c *GRPCClient) Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error {
	startTime := time.Now()
	err := c.Conn.Invoke(ctx, method, args, reply, opts...)
	code := 0
	if err != nil {
		if e, ok := status.FromError(err); ok {
			code = int(e.Code())
		}
	}
	tags := metrics.BuildExternalGRPCServiceTags(c.envPrefix, method, code)
	metrics.Timing(metrics.ExternalApiRequestLatency, time.Since(startTime), tags)
	metrics.Incr(metrics.ExternalApiRequestCount, tags)
	return err
}

func (c *GRPCClient) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return c.Conn.NewStream(ctx, desc, method, opts...)
}

func (c *GRPCClient) Close() error {
	return c.Conn.Close()
}
