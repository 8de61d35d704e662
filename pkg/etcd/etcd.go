package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/clients/predict"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	basePath          = "/config/batchinfer/"
	modelsPath        = "/models/"
	connectionTimeout = 30 * time.Second
)

// NewClient connects to the comma-separated servers in etcd_server.
func NewClient(configs *configs.AppConfigs) (*clientv3.Client, error) {
	if configs.Configs.ETCD_SERVER == "" {
		return nil, fmt.Errorf("etcd server is not set")
	}
	servers := strings.Split(configs.Configs.ETCD_SERVER, ",")
	conn, err := clientv3.New(clientv3.Config{
		Endpoints:           servers,
		Username:            configs.Configs.ETCD_USERNAME,
		Password:            configs.Configs.ETCD_PASSWORD,
		DialTimeout:         connectionTimeout,
		DialKeepAliveTime:   connectionTimeout,
		PermitWithoutStream: true,
	})
	if err != nil {
		logger.Error("failed to create etcd client", err)
		return nil, err
	}
	return conn, nil
}

// ModelSpecPath is the node holding the model spec document of model for app.
func ModelSpecPath(appName, model string) string {
	return basePath + appName + modelsPath + model
}

// LoadModelSpec reads the JSON model spec stored at path.
func LoadModelSpec(ctx context.Context, kv clientv3.KV, path string) (predict.ModelSpec, error) {
	var spec predict.ModelSpec
	resp, err := kv.Get(ctx, path)
	if err != nil {
		return spec, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(resp.Kvs) == 0 {
		return spec, fmt.Errorf("model spec not found at %s", path)
	}
	if err := json.Unmarshal(resp.Kvs[0].Value, &spec); err != nil {
		return spec, fmt.Errorf("decoding model spec at %s: %w", path, err)
	}
	if spec.Name == "" {
		return spec, fmt.Errorf("model spec at %s has no name", path)
	}
	return spec, nil
}

// PutModelSpec stores spec at path, replacing any existing document.
func PutModelSpec(ctx context.Context, kv clientv3.KV, path string, spec predict.ModelSpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, path, string(data)); err != nil {
		logger.Error(fmt.Sprintf("Failed to set model spec at node %s", path), err)
		return err
	}
	return nil
}
