package logger

import (
	"testing"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"FATAL", zerolog.FatalLevel},
		{"PANIC", zerolog.PanicLevel},
		{"DISABLED", zerolog.Disabled},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setLogLevel(tt.level)
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}

func TestSetLogLevel_Invalid(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	assert.Panics(t, func() { setLogLevel("VERBOSE") })
}

func TestInitLogger_LowercaseLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	InitLogger(&configs.AppConfigs{Configs: configs.Configs{
		ApplicationName:     "batchinfer-test",
		ApplicationLogLevel: "warn",
	}})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Equal(t, "batchinfer-test", applicationName)
}

func TestPercentError_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		PercentError("sampled", assert.AnError, 0)
		PercentError("always", assert.AnError, 100)
	})
}
