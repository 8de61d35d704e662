package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	defaultLogLevel            = "INFO"
	defaultApplicationName     = "batchinfer"
	defaultApplicationPort     = 8500
	defaultMetricsSamplingRate = "1"
	defaultTelegrafHost        = "localhost"
	defaultTelegrafPort        = "8125"
	defaultEchoFactor          = 2.0
)

// InitConfig reads the process environment (and application.env, if the
// caller loaded one into viper) into appConfigs.
func InitConfig(appConfigs *AppConfigs) error {
	cfg, ok := appConfigs.GetStaticConfig().(*Configs)
	if !ok {
		return fmt.Errorf("failed to cast static config to *Configs")
	}

	setDefaults()
	bindEnvVars()

	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config from environment: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("app_log_level", defaultLogLevel)
	viper.SetDefault("app_name", defaultApplicationName)
	viper.SetDefault("app_port", defaultApplicationPort)
	viper.SetDefault("metrics_sampling_rate", defaultMetricsSamplingRate)
	viper.SetDefault("telegraf_host", defaultTelegrafHost)
	viper.SetDefault("telegraf_port", defaultTelegrafPort)
	viper.SetDefault("echoServer_factor", defaultEchoFactor)
}

func bindEnvVars() {
	// Application config
	viper.BindEnv("app_env", "APP_ENV")
	viper.BindEnv("app_log_level", "APP_LOG_LEVEL")
	viper.BindEnv("app_name", "APP_NAME")
	viper.BindEnv("app_port", "APP_PORT")

	// ETCD config
	viper.BindEnv("etcd_server", "ETCD_SERVER")
	viper.BindEnv("etcd_username", "ETCD_USERNAME")
	viper.BindEnv("etcd_password", "ETCD_PASSWORD")

	// Metrics / Telegraf config
	viper.BindEnv("metrics_sampling_rate", "METRIC_SAMPLING_RATE")
	viper.BindEnv("telegraf_host", "TELEGRAF_HOST")
	viper.BindEnv("telegraf_port", "TELEGRAF_PORT")

	// Echo server config
	viper.BindEnv("echoServer_factor", "ECHO_SERVER_FACTOR")
	viper.BindEnv("echoServer_latencyMs", "ECHO_SERVER_LATENCY_MS")
	viper.BindEnv("echoServer_failureRate", "ECHO_SERVER_FAILURE_RATE")
	viper.BindEnv("echoServer_requireCaller", "ECHO_SERVER_REQUIRE_CALLER")
}
