package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/logger"
	"github.com/rs/zerolog/log"
)

const (
	PredictRequestTotal   = "batchinfer.predict.request.total"
	PredictRequestLatency = "batchinfer.predict.request.latency"
	PredictRequestError   = "batchinfer.predict.request.error"
	BatchCount            = "batchinfer.batch.count"
	BatchRetryTotal       = "batchinfer.batch.retry.total"
	BatchFailureTotal     = "batchinfer.batch.failure.total"
	GateWaitLatency       = "batchinfer.gate.wait.latency"

	ServerRequestTotal   = "batchinfer.server.request.total"
	ServerRequestLatency = "batchinfer.server.request.latency"

	ExternalApiRequestCount   = "external_api_request_count"
	ExternalApiRequestLatency = "external_api_request_latency"
)

var (
	// It is safe to use one Client from multiple goroutines simultaneously
	statsDClient *statsd.Client = getDefaultClient()

	// by default full sampling
	samplingRate float64 = 1.0
)

func InitMetrics(configs *configs.AppConfigs) {
	var err error
	samplingRate, err = strconv.ParseFloat(configs.Configs.MetricsSamplingRate, 64)
	if err != nil {
		logger.Panic("Error parsing metrics sampling rate", err)
	}
	telegrafAddress := getTelegrafAddress(configs)
	globalTags := getGlobalTags(configs)

	client, err := statsd.New(
		telegrafAddress,
		statsd.WithTags(globalTags),
	)
	if err != nil {
		// Telegraf is usually absent locally; keep the default client.
		logger.Error("StatsD client initialization failed, metrics will be unavailable", err)
		return
	}
	statsDClient = client
	logger.Info(fmt.Sprintf("Metrics client initialized with telegraf address - %s, global tags - %v, and sampling rate - %f",
		telegrafAddress, globalTags, samplingRate))
}

func getDefaultClient() *statsd.Client {
	client, err := statsd.New("localhost:8125")
	if err != nil {
		client, _ = statsd.New("localhost:8125", statsd.WithoutTelemetry())
	}
	return client
}

func getGlobalTags(configs *configs.AppConfigs) []string {
	return BuildTag(
		NewTag(TagEnv, configs.Configs.ApplicationEnv),
		NewTag(TagService, configs.Configs.ApplicationName),
	)
}

func getTelegrafAddress(configs *configs.AppConfigs) string {
	return configs.Configs.Telegraf_Host + ":" + configs.Configs.Telegraf_Port
}

func Timing(name string, value time.Duration, tags []string) {
	if statsDClient == nil {
		return
	}
	if err := statsDClient.Timing(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd timing")
	}
}

// TimingWithStart is meant to be deferred at the top of the measured function.
func TimingWithStart(name string, startTime time.Time, tags []string) {
	Timing(name, time.Since(startTime), tags)
}

func Count(name string, value int64, tags []string) {
	if statsDClient == nil {
		return
	}
	if err := statsDClient.Count(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd count")
	}
}

func Incr(name string, tags []string) {
	Count(name, 1, tags)
}

func Gauge(name string, value float64, tags []string) {
	if statsDClient == nil {
		return
	}
	if err := statsDClient.Gauge(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd gauge")
	}
}
