package configs

type Configs struct {
	ApplicationEnv      string `mapstructure:"app_env"`
	ApplicationLogLevel string `mapstructure:"app_log_level"`
	ApplicationName     string `mapstructure:"app_name"`
	ApplicationPort     int    `mapstructure:"app_port"`

	//telegraf-config
	MetricsSamplingRate string `mapstructure:"metrics_sampling_rate"`
	Telegraf_Host       string `mapstructure:"telegraf_host"`
	Telegraf_Port       string `mapstructure:"telegraf_port"`

	ETCD_SERVER   string `mapstructure:"etcd_server"`
	ETCD_USERNAME string `mapstructure:"etcd_username"`
	ETCD_PASSWORD string `mapstructure:"etcd_password"`

	//echo-server-config
	EchoServer_Factor        float64 `mapstructure:"echoServer_factor"`
	EchoServer_LatencyMs     int     `mapstructure:"echoServer_latencyMs"`
	EchoServer_FailureRate   float64 `mapstructure:"echoServer_failureRate"`
	EchoServer_RequireCaller bool    `mapstructure:"echoServer_requireCaller"`
}

type AppConfigs struct {
	Configs Configs
}

func (a *AppConfigs) GetStaticConfig() interface{} {
	return &a.Configs
}
