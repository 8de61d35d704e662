package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/clients/predict"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/etcd"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/logger"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/metrics"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

const etcdReadTimeout = 5 * time.Second

var AppConfigs configs.AppConfigs

// document is the JSON shape of both the input file and the printed result.
type document struct {
	Inputs  map[string]tensor.Tensor `json:"inputs,omitempty"`
	Outputs map[string]tensor.Tensor `json:"outputs,omitempty"`
}

func main() {
	input := flag.String("input", "-", "path of the JSON input document, - for stdin")
	batchSize := flag.Int("batch-size", 0, "rows per batch, defaults to PREDICT_CLIENT_V1_BATCH_SIZE")
	etcdEndpoints := flag.String("etcd-endpoints", "", "comma-separated etcd endpoints to load the model spec from")
	model := flag.String("model", "", "model whose spec is loaded from etcd")
	flag.Parse()

	viper.AutomaticEnv()
	viper.SetConfigName("application")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	if err := configs.InitConfig(&AppConfigs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *etcdEndpoints != "" {
		AppConfigs.Configs.ETCD_SERVER = *etcdEndpoints
	}
	logger.InitLogger(&AppConfigs)
	metrics.InitMetrics(&AppConfigs)

	if err := run(*input, *batchSize, *model, os.Stdout); err != nil {
		logger.Error("batchinfer failed", err)
		os.Exit(1)
	}
}

func run(inputPath string, batchSize int, model string, out io.Writer) error {
	if model != "" {
		if err := applyEtcdModelSpec(model); err != nil {
			return err
		}
	}
	conf, err := predict.LoadConfig(predict.V1Prefix)
	if err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = conf.BatchSize
	}

	inputs, err := readInputs(inputPath)
	if err != nil {
		return err
	}

	client := predict.InitClient(predict.Version1, conf)
	outputs, err := client.Predict(inputs, batchSize)
	if err != nil {
		return err
	}
	return writeOutputs(out, outputs)
}

// applyEtcdModelSpec loads the model spec from etcd and exposes it through
// the same viper keys LoadConfig reads.
func applyEtcdModelSpec(model string) error {
	conn, err := etcd.NewClient(&AppConfigs)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), etcdReadTimeout)
	defer cancel()
	spec, err := etcd.LoadModelSpec(ctx, conn, etcd.ModelSpecPath(AppConfigs.Configs.ApplicationName, model))
	if err != nil {
		return err
	}
	setModelSpec(predict.V1Prefix, spec)
	return nil
}

func setModelSpec(prefix string, spec predict.ModelSpec) {
	viper.Set(prefix+"MODEL_NAME", spec.Name)
	viper.Set(prefix+"MODEL_VERSION", spec.Version)
	viper.Set(prefix+"SIGNATURE_NAME", spec.SignatureName)
	viper.Set(prefix+"INPUT_KEYS", strings.Join(spec.InputKeys, ","))
	viper.Set(prefix+"OUTPUT_KEYS", strings.Join(spec.OutputKeys, ","))
}

func readInputs(path string) (map[string]tensor.Tensor, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return decodeInputs(r)
}

func decodeInputs(r io.Reader) (map[string]tensor.Tensor, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding input document: %w", err)
	}
	if len(doc.Inputs) == 0 {
		return nil, fmt.Errorf("input document has no inputs")
	}
	return doc.Inputs, nil
}

func writeOutputs(w io.Writer, outputs map[string]tensor.Tensor) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Outputs: outputs})
}
