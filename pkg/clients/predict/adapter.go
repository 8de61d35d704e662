package predict

import (
	"fmt"
	"math"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldModelSpec     = "model_spec"
	fieldName          = "name"
	fieldVersion       = "version"
	fieldSignatureName = "signature_name"
	fieldInputs        = "inputs"
	fieldOutputs       = "outputs"
	fieldOutputFilter  = "output_filter"
	fieldShape         = "shape"
	fieldValues        = "values"
	fieldId            = "id"
)

type IAdapter interface {
	MapRequestToProto(req *DispatchRequest) (*structpb.Struct, error)
	MapProtoToRequest(proto *structpb.Struct) (*DispatchRequest, error)
	MapOutputsToProto(model ModelSpec, outputs OutputMap, id string) (*structpb.Struct, error)
	MapProtoToOutputs(proto *structpb.Struct, requestedOutputs []string) (OutputMap, error)
}

// Adapter maps dispatch requests and outputs to and from the Struct wire
// documents of the prediction service.
type Adapter struct {
	IAdapter
}

func (a *Adapter) MapRequestToProto(req *DispatchRequest) (*structpb.Struct, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	inputs, err := encodeTensorMap(req.Inputs)
	if err != nil {
		return nil, err
	}
	filter := make([]*structpb.Value, len(req.OutputKeys))
	for i, key := range req.OutputKeys {
		filter[i] = structpb.NewStringValue(key)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldModelSpec:    structpb.NewStructValue(encodeModelSpec(req.Model)),
		fieldInputs:       structpb.NewStructValue(inputs),
		fieldOutputFilter: structpb.NewListValue(&structpb.ListValue{Values: filter}),
	}}, nil
}

func (a *Adapter) MapProtoToRequest(proto *structpb.Struct) (*DispatchRequest, error) {
	if proto == nil {
		return nil, ErrNilRequest
	}
	model := decodeModelSpec(proto.GetFields()[fieldModelSpec].GetStructValue())

	inputsStruct := proto.GetFields()[fieldInputs].GetStructValue()
	if inputsStruct == nil {
		return nil, fmt.Errorf("request has no inputs")
	}
	inputs, err := decodeTensorMap(inputsStruct)
	if err != nil {
		return nil, err
	}

	var outputKeys []string
	for i, v := range proto.GetFields()[fieldOutputFilter].GetListValue().GetValues() {
		key, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("output filter entry %d is not a string", i)
		}
		outputKeys = append(outputKeys, key.StringValue)
	}
	model.InputKeys = keysOf(inputs)
	model.OutputKeys = outputKeys

	return &DispatchRequest{Model: model, Inputs: inputs, OutputKeys: outputKeys}, nil
}

func (a *Adapter) MapOutputsToProto(model ModelSpec, outputs OutputMap, id string) (*structpb.Struct, error) {
	encoded, err := encodeTensorMap(outputs)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldModelSpec: structpb.NewStructValue(encodeModelSpec(model)),
		fieldOutputs:   structpb.NewStructValue(encoded),
		fieldId:        structpb.NewStringValue(id),
	}}, nil
}

// MapProtoToOutputs decodes the requested outputs; outputs the caller did not
// ask for are dropped.
func (a *Adapter) MapProtoToOutputs(proto *structpb.Struct, requestedOutputs []string) (OutputMap, error) {
	if proto == nil {
		return nil, fmt.Errorf("received nil prediction response")
	}
	outputsStruct := proto.GetFields()[fieldOutputs].GetStructValue()
	if outputsStruct == nil {
		return nil, fmt.Errorf("prediction response has no outputs")
	}
	outputs := make(OutputMap, len(requestedOutputs))
	for _, key := range requestedOutputs {
		v, ok := outputsStruct.GetFields()[key]
		if !ok {
			return nil, fmt.Errorf("output %q missing from response", key)
		}
		t, err := decodeTensor(v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", key, err)
		}
		outputs[key] = t
	}
	return outputs, nil
}

func encodeModelSpec(model ModelSpec) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldName:          structpb.NewStringValue(model.Name),
		fieldVersion:       structpb.NewNumberValue(float64(model.Version)),
		fieldSignatureName: structpb.NewStringValue(model.SignatureName),
	}}
}

func decodeModelSpec(s *structpb.Struct) ModelSpec {
	fields := s.GetFields()
	return ModelSpec{
		Name:          fields[fieldName].GetStringValue(),
		Version:       int64(fields[fieldVersion].GetNumberValue()),
		SignatureName: fields[fieldSignatureName].GetStringValue(),
	}
}

func encodeTensorMap(tensors map[string]tensor.Tensor) (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, len(tensors))
	for key, t := range tensors {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", key, err)
		}
		fields[key] = encodeTensor(t)
	}
	return &structpb.Struct{Fields: fields}, nil
}

func decodeTensorMap(s *structpb.Struct) (map[string]tensor.Tensor, error) {
	tensors := make(map[string]tensor.Tensor, len(s.GetFields()))
	for key, v := range s.GetFields() {
		t, err := decodeTensor(v)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", key, err)
		}
		tensors[key] = t
	}
	return tensors, nil
}

func encodeTensor(t tensor.Tensor) *structpb.Value {
	shape := make([]*structpb.Value, len(t.Shape))
	for i, dim := range t.Shape {
		shape[i] = structpb.NewNumberValue(float64(dim))
	}
	values := make([]*structpb.Value, len(t.Values))
	for i, v := range t.Values {
		values[i] = structpb.NewNumberValue(v)
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		fieldShape:  structpb.NewListValue(&structpb.ListValue{Values: shape}),
		fieldValues: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}})
}

func decodeTensor(v *structpb.Value) (tensor.Tensor, error) {
	s := v.GetStructValue()
	if s == nil {
		return tensor.Tensor{}, fmt.Errorf("tensor is not an object")
	}
	shapeList := s.GetFields()[fieldShape].GetListValue()
	if shapeList == nil {
		return tensor.Tensor{}, fmt.Errorf("tensor has no shape")
	}
	shape := make([]int64, len(shapeList.GetValues()))
	for i, dim := range shapeList.GetValues() {
		n, err := numberOf(dim)
		if err != nil {
			return tensor.Tensor{}, fmt.Errorf("shape[%d]: %w", i, err)
		}
		if n != math.Trunc(n) {
			return tensor.Tensor{}, fmt.Errorf("shape[%d] is not an integer: %v", i, n)
		}
		shape[i] = int64(n)
	}

	valueList := s.GetFields()[fieldValues].GetListValue()
	values := make([]float64, len(valueList.GetValues()))
	for i, item := range valueList.GetValues() {
		n, err := numberOf(item)
		if err != nil {
			return tensor.Tensor{}, fmt.Errorf("values[%d]: %w", i, err)
		}
		values[i] = n
	}
	return tensor.New(shape, values)
}

func numberOf(v *structpb.Value) (float64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("not a number")
	}
	return n.NumberValue, nil
}

func keysOf(tensors map[string]tensor.Tensor) []string {
	keys := make([]string, 0, len(tensors))
	for key := range tensors {
		keys = append(keys, key)
	}
	return keys
}
