package predict

import "github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"

type Client interface {
	// Predict splits inputs into batches of batchSize rows, runs them
	// against the model server and returns the outputs in input row order.
	Predict(inputs map[string]tensor.Tensor, batchSize int) (map[string]tensor.Tensor, error)
}
