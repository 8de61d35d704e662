package grpcclient

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestNewConn(t *testing.T) {
	viperSettings := map[string]interface{}{
		"EXAMPLE_HOST":        "example.com",
		"EXAMPLE_PORT":        "8500",
		"EXAMPLE_DEADLINE_MS": 300,
		"EXAMPLE_PLAINTEXT":   true,
	}
	for key, value := range viperSettings {
		viper.Set(key, value)
	}
	defer viper.Reset()

	conn := NewConn("EXAMPLE_")

	assert.NotNil(t, conn)
	assert.NotNil(t, conn.Conn)
	assert.Equal(t, int64(300), conn.DeadLine)
	assert.Equal(t, "EXAMPLE_", conn.envPrefix)
	assert.NoError(t, conn.Close())
}

func TestNewConn_MissingHost(t *testing.T) {
	viper.Reset()
	assert.Panics(t, func() { _ = NewConn("MISSING_") })
}

func TestNewConn_MissingPort(t *testing.T) {
	viper.Set("EXAMPLE_HOST", "example.com")
	viper.Set("EXAMPLE_DEADLINE_MS", 300)
	defer viper.Reset()
	assert.Panics(t, func() { _ = NewConn("EXAMPLE_") })
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name       string
		settings   map[string]interface{}
		wantPolicy string
		wantPlain  bool
	}{
		{
			name: "explicit policy",
			settings: map[string]interface{}{
				"EXAMPLE_HOST":                  "example.com",
				"EXAMPLE_PORT":                  "8500",
				"EXAMPLE_DEADLINE_MS":           300,
				"EXAMPLE_PLAINTEXT":             true,
				"EXAMPLE_LOAD_BALANCING_POLICY": "pick_first",
			},
			wantPolicy: "pick_first",
			wantPlain:  true,
		},
		{
			name: "default policy and tls",
			settings: map[string]interface{}{
				"EXAMPLE_HOST":        "example.com",
				"EXAMPLE_PORT":        "8500",
				"EXAMPLE_DEADLINE_MS": 300,
			},
			wantPolicy: defaultLoadBalancingPolicy,
			wantPlain:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			for key, value := range tt.settings {
				viper.Set(key, value)
			}

			config := newConfig("EXAMPLE_")
			assert.Equal(t, "example.com", config.Host)
			assert.Equal(t, "8500", config.Port)
			assert.Equal(t, 300, config.DeadLine)
			assert.Equal(t, tt.wantPolicy, config.LoadBalancingPolicy)
			assert.Equal(t, tt.wantPlain, config.PlainText)
		})
	}
}

func TestGetGRPCConnections_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "no host", config: Config{Port: "8500", DeadLine: 100}},
		{name: "no port", config: Config{Host: "localhost", DeadLine: 100}},
		{name: "zero deadline", config: Config{Host: "localhost", Port: "8500"}},
		{name: "negative deadline", config: Config{Host: "localhost", Port: "8500", DeadLine: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := getGRPCConnections(tt.config)
			assert.Nil(t, conn)
			assert.Error(t, err)
		})
	}
}

func TestNewConnFromConfig(t *testing.T) {
	conn := NewConnFromConfig(&Config{
		Host:      "localhost",
		Port:      "8500",
		DeadLine:  250,
		PlainText: true,
	}, "PREDICT_CLIENT_V1_")
	require.NotNil(t, conn)
	defer conn.Close()

	var _ grpc.ClientConnInterface = conn
	assert.Equal(t, int64(250), conn.DeadLine)
}

func TestNewConnFromConfig_Invalid(t *testing.T) {
	assert.Panics(t, func() {
		_ = NewConnFromConfig(&Config{Host: "localhost"}, "")
	})
}
