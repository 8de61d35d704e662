package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/clients/predict"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInputs(t *testing.T) {
	inputs, err := decodeInputs(strings.NewReader(`{"inputs": {"x": {"shape": [2, 2], "values": [1, 2, 3, 4]}}}`))
	require.NoError(t, err)
	assert.Equal(t, tensor.Tensor{Shape: []int64{2, 2}, Values: []float64{1, 2, 3, 4}}, inputs["x"])

	_, err = decodeInputs(strings.NewReader(`{"inputs": {}}`))
	assert.EqualError(t, err, "input document has no inputs")

	_, err = decodeInputs(strings.NewReader(`not json`))
	assert.ErrorContains(t, err, "decoding input document")
}

func TestWriteOutputs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutputs(&buf, map[string]tensor.Tensor{"y": tensor.Vector(2, 4)}))

	assert.JSONEq(t, `{"outputs": {"y": {"shape": [2], "values": [2, 4]}}}`, buf.String())
}

func TestSetModelSpec(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set(predict.V1Prefix+"HOST", "localhost")
	viper.Set(predict.V1Prefix+"CALLER_ID", "cli")

	setModelSpec(predict.V1Prefix, predict.ModelSpec{
		Name:       "ctr",
		Version:    2,
		InputKeys:  []string{"user", "item"},
		OutputKeys: []string{"score"},
	})
	conf, err := predict.LoadConfig(predict.V1Prefix)

	require.NoError(t, err)
	assert.Equal(t, "ctr", conf.Model.Name)
	assert.Equal(t, int64(2), conf.Model.Version)
	assert.Equal(t, []string{"user", "item"}, conf.Model.InputKeys)
	assert.Equal(t, []string{"score"}, conf.Model.OutputKeys)
}
