package predict

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	V1Prefix = "PREDICT_CLIENT_V1_"

	defaultPort         = "8500"
	defaultDeadlineMs   = 1000
	defaultConcurrency  = 4
	defaultMaxRetries   = 2
	defaultRetryDelayMs = 100
	defaultBatchSize    = 64
)

type Config struct {
	Host        string
	Port        string
	PlainText   bool
	CallerId    string
	CallerToken string
	DeadLineMs  int
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	DispatchQPS float64
	Burst       int
	BatchSize   int
	Model       ModelSpec
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.DeadLineMs) * time.Millisecond
}

// LoadConfig reads the client config from viper keys under prefix. Keys not
// set fall back to defaults; HOST, CALLER_ID and the model keys have none.
func LoadConfig(prefix string) (*Config, error) {
	setDefaults(prefix)
	conf := &Config{
		Host:        viper.GetString(prefix + "HOST"),
		Port:        viper.GetString(prefix + "PORT"),
		PlainText:   viper.GetBool(prefix + "PLAINTEXT"),
		CallerId:    viper.GetString(prefix + "CALLER_ID"),
		CallerToken: viper.GetString(prefix + "AUTH_TOKEN"),
		DeadLineMs:  viper.GetInt(prefix + "DEADLINE_MS"),
		Concurrency: viper.GetInt(prefix + "CONCURRENCY"),
		MaxRetries:  viper.GetInt(prefix + "MAX_RETRIES"),
		RetryDelay:  time.Duration(viper.GetInt(prefix+"RETRY_DELAY_MS")) * time.Millisecond,
		DispatchQPS: viper.GetFloat64(prefix + "DISPATCH_QPS"),
		Burst:       viper.GetInt(prefix + "BURST"),
		BatchSize:   viper.GetInt(prefix + "BATCH_SIZE"),
		Model: ModelSpec{
			Name:          viper.GetString(prefix + "MODEL_NAME"),
			Version:       viper.GetInt64(prefix + "MODEL_VERSION"),
			SignatureName: viper.GetString(prefix + "SIGNATURE_NAME"),
			InputKeys:     splitKeys(viper.GetString(prefix + "INPUT_KEYS")),
			OutputKeys:    splitKeys(viper.GetString(prefix + "OUTPUT_KEYS")),
		},
	}
	if ok, err := validConfigs(conf); !ok {
		return nil, err
	}
	return conf, nil
}

func setDefaults(prefix string) {
	viper.SetDefault(prefix+"PORT", defaultPort)
	viper.SetDefault(prefix+"PLAINTEXT", true)
	viper.SetDefault(prefix+"DEADLINE_MS", defaultDeadlineMs)
	viper.SetDefault(prefix+"CONCURRENCY", defaultConcurrency)
	viper.SetDefault(prefix+"MAX_RETRIES", defaultMaxRetries)
	viper.SetDefault(prefix+"RETRY_DELAY_MS", defaultRetryDelayMs)
	viper.SetDefault(prefix+"DISPATCH_QPS", 0)
	viper.SetDefault(prefix+"BURST", 0)
	viper.SetDefault(prefix+"BATCH_SIZE", defaultBatchSize)
}

func splitKeys(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func validConfigs(conf *Config) (bool, error) {
	if conf == nil {
		return false, fmt.Errorf("client config is nil")
	}
	if conf.Host == "" {
		return false, fmt.Errorf("host not configured")
	}
	if conf.Port == "" {
		return false, fmt.Errorf("port not configured")
	}
	if conf.CallerId == "" {
		return false, fmt.Errorf("caller id not configured")
	}
	return validRuntimeConfigs(conf)
}

// validRuntimeConfigs checks the settings Predict itself depends on; the
// connection settings are only needed by the gRPC transport. The model keys
// are normalized in place before they are checked.
func validRuntimeConfigs(conf *Config) (bool, error) {
	conf.Model = conf.Model.normalize()
	if conf.DeadLineMs <= 0 {
		return false, fmt.Errorf("deadline is invalid, configured value: %v", conf.DeadLineMs)
	}
	if conf.Concurrency < 1 {
		return false, fmt.Errorf("concurrency is invalid, configured value: %v", conf.Concurrency)
	}
	if conf.MaxRetries < 0 {
		return false, fmt.Errorf("max retries is invalid, configured value: %v", conf.MaxRetries)
	}
	if conf.RetryDelay < 0 {
		return false, fmt.Errorf("retry delay is invalid, configured value: %v", conf.RetryDelay)
	}
	if conf.DispatchQPS < 0 {
		return false, fmt.Errorf("dispatch qps is invalid, configured value: %v", conf.DispatchQPS)
	}
	if err := conf.Model.validate(); err != nil {
		return false, err
	}
	return true, nil
}
