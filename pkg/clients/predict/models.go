package predict

import (
	"fmt"
	"strings"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/tensor"
	"github.com/emirpasic/gods/sets/linkedhashset"
)

// OutputMap holds one tensor per output key.
type OutputMap map[string]tensor.Tensor

// ModelSpec identifies the served model and the keys it consumes and produces.
type ModelSpec struct {
	Name          string   `json:"name"`
	Version       int64    `json:"version"`
	SignatureName string   `json:"signature_name"`
	InputKeys     []string `json:"input_keys"`
	OutputKeys    []string `json:"output_keys"`
}

// normalize trims and de-duplicates the declared keys, keeping the first
// occurrence of each.
func (m ModelSpec) normalize() ModelSpec {
	m.Name = strings.TrimSpace(m.Name)
	m.SignatureName = strings.TrimSpace(m.SignatureName)
	m.InputKeys = uniqueKeys(m.InputKeys)
	m.OutputKeys = uniqueKeys(m.OutputKeys)
	return m
}

func (m ModelSpec) validate() error {
	if m.Name == "" {
		return fmt.Errorf("model name not configured")
	}
	if m.Version < 0 {
		return fmt.Errorf("model version is invalid, configured value: %d", m.Version)
	}
	if len(m.InputKeys) == 0 {
		return fmt.Errorf("model %s declares no input keys", m.Name)
	}
	if len(m.OutputKeys) == 0 {
		return fmt.Errorf("model %s declares no output keys", m.Name)
	}
	return nil
}

func uniqueKeys(keys []string) []string {
	set := linkedhashset.New()
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key != "" {
			set.Add(key)
		}
	}
	unique := make([]string, 0, set.Size())
	for _, key := range set.Values() {
		unique = append(unique, key.(string))
	}
	return unique
}

// BatchRange is the half-open row range [Start, End) of one batch.
type BatchRange struct {
	Start int
	End   int
}

func (b BatchRange) Rows() int {
	return b.End - b.Start
}

// InFlightRequest is one batch on its way to the model server. The payload
// is built once and re-sent unchanged on every retry.
type InFlightRequest struct {
	Index            int
	Range            BatchRange
	Payload          map[string]tensor.Tensor
	RetriesRemaining int
}

// ResultSlot holds the terminal outcome of one batch. Exactly one of Value
// and Err is set once the batch is done; both are nil while it is pending.
type ResultSlot struct {
	Index int
	Value OutputMap
	Err   error
}

func (s ResultSlot) pending() bool {
	return s.Value == nil && s.Err == nil
}

// DispatchRequest is what a Transport sends for one attempt.
type DispatchRequest struct {
	Model      ModelSpec
	Inputs     map[string]tensor.Tensor
	OutputKeys []string
}
