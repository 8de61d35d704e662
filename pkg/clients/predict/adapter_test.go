package predict

import (
	"testing"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestAdapter_RequestToProtoAndBack(t *testing.T) {
	adapter := Adapter{}
	matrix, err := tensor.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	req := &DispatchRequest{
		Model:      testModel(),
		Inputs:     map[string]tensor.Tensor{"x": matrix},
		OutputKeys: []string{"y", "z"},
	}

	proto, err := adapter.MapRequestToProto(req)
	require.NoError(t, err)

	modelSpec := proto.GetFields()["model_spec"].GetStructValue().GetFields()
	assert.Equal(t, "ranker", modelSpec["name"].GetStringValue())
	assert.Equal(t, float64(3), modelSpec["version"].GetNumberValue())
	assert.Equal(t, "serving_default", modelSpec["signature_name"].GetStringValue())

	decoded, err := adapter.MapProtoToRequest(proto)
	require.NoError(t, err)
	assert.Equal(t, req.Inputs, decoded.Inputs)
	assert.Equal(t, req.OutputKeys, decoded.OutputKeys)
	assert.Equal(t, "ranker", decoded.Model.Name)
	assert.Equal(t, int64(3), decoded.Model.Version)
}

func TestAdapter_MapProtoToOutputs(t *testing.T) {
	adapter := Adapter{}
	resp, err := adapter.MapOutputsToProto(testModel(), OutputMap{
		"y":     tensor.Vector(1, 2),
		"extra": tensor.Vector(5),
	}, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.GetFields()["id"].GetStringValue())

	outputs, err := adapter.MapProtoToOutputs(resp, []string{"y"})
	require.NoError(t, err)
	assert.Equal(t, OutputMap{"y": tensor.Vector(1, 2)}, outputs)

	_, err = adapter.MapProtoToOutputs(resp, []string{"missing"})
	assert.ErrorContains(t, err, `output "missing" missing`)
}

func TestAdapter_RejectsMalformedDocuments(t *testing.T) {
	adapter := Adapter{}

	_, err := adapter.MapRequestToProto(nil)
	assert.ErrorIs(t, err, ErrNilRequest)

	_, err = adapter.MapRequestToProto(&DispatchRequest{Inputs: map[string]tensor.Tensor{"x": {Shape: []int64{2}, Values: []float64{1}}}})
	assert.Error(t, err)

	_, err = adapter.MapProtoToOutputs(nil, []string{"y"})
	assert.Error(t, err)

	_, err = adapter.MapProtoToOutputs(&structpb.Struct{}, []string{"y"})
	assert.ErrorContains(t, err, "no outputs")

	badShape, err := structpb.NewStruct(map[string]interface{}{
		"outputs": map[string]interface{}{
			"y": map[string]interface{}{"shape": []interface{}{1.5}, "values": []interface{}{1.0}},
		},
	})
	require.NoError(t, err)
	_, err = adapter.MapProtoToOutputs(badShape, []string{"y"})
	assert.ErrorContains(t, err, "not an integer")

	badValue, err := structpb.NewStruct(map[string]interface{}{
		"outputs": map[string]interface{}{
			"y": map[string]interface{}{"shape": []interface{}{1.0}, "values": []interface{}{"one"}},
		},
	})
	require.NoError(t, err)
	_, err = adapter.MapProtoToOutputs(badValue, []string{"y"})
	assert.ErrorContains(t, err, "not a number")
}
