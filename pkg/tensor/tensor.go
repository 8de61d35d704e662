// Package tensor holds the row-major numeric arrays that flow through the
// batched prediction client. The first dimension of every tensor is the row
// (example) axis; batching slices and concatenates along it.
package tensor

import (
	"fmt"
)

type Tensor struct {
	Shape  []int64   `json:"shape"`
	Values []float64 `json:"values"`
}

// New validates that values fill shape exactly.
func New(shape []int64, values []float64) (Tensor, error) {
	t := Tensor{Shape: shape, Values: values}
	if err := t.Validate(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

// FromRows builds a 2-D tensor; every row must have the same width.
func FromRows(rows [][]float64) (Tensor, error) {
	if len(rows) == 0 {
		return Tensor{Shape: []int64{0, 0}, Values: []float64{}}, nil
	}
	width := len(rows[0])
	values := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return Tensor{}, fmt.Errorf("row %d has %d elements, expected %d", i, len(row), width)
		}
		values = append(values, row...)
	}
	return Tensor{Shape: []int64{int64(len(rows)), int64(width)}, Values: values}, nil
}

// Vector builds a 1-D tensor with one scalar per row.
func Vector(values ...float64) Tensor {
	return Tensor{Shape: []int64{int64(len(values))}, Values: values}
}

func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("tensor has no shape")
	}
	elements := int64(1)
	for i, dim := range t.Shape {
		if dim < 0 {
			return fmt.Errorf("tensor dimension %d is negative: %d", i, dim)
		}
		elements *= dim
	}
	if int64(len(t.Values)) != elements {
		return fmt.Errorf("tensor shape %v needs %d values, got %d", t.Shape, elements, len(t.Values))
	}
	return nil
}

// Rows is the size of the first dimension.
func (t Tensor) Rows() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return int(t.Shape[0])
}

// RowWidth is the number of values in one row.
func (t Tensor) RowWidth() int {
	if len(t.Shape) == 0 {
		return 0
	}
	width := 1
	for _, dim := range t.Shape[1:] {
		width *= int(dim)
	}
	return width
}

// Slice copies rows [start, end).
func (t Tensor) Slice(start, end int) (Tensor, error) {
	if start < 0 || end < start || end > t.Rows() {
		return Tensor{}, fmt.Errorf("row range [%d, %d) out of bounds for %d rows", start, end, t.Rows())
	}
	width := t.RowWidth()
	values := make([]float64, (end-start)*width)
	copy(values, t.Values[start*width:end*width])

	shape := make([]int64, len(t.Shape))
	copy(shape, t.Shape)
	shape[0] = int64(end - start)
	return Tensor{Shape: shape, Values: values}, nil
}

// Concat joins parts along the row axis. All parts must share the per-row
// shape.
func Concat(parts ...Tensor) (Tensor, error) {
	if len(parts) == 0 {
		return Tensor{}, fmt.Errorf("nothing to concatenate")
	}
	if err := parts[0].Validate(); err != nil {
		return Tensor{}, fmt.Errorf("part 0: %w", err)
	}
	rowShape := parts[0].Shape[1:]
	totalRows := 0
	totalValues := 0
	for i, part := range parts {
		if err := part.Validate(); err != nil {
			return Tensor{}, fmt.Errorf("part %d: %w", i, err)
		}
		if !sameDims(rowShape, part.Shape[1:]) {
			return Tensor{}, fmt.Errorf("part %d has row shape %v, expected %v", i, part.Shape[1:], rowShape)
		}
		totalRows += part.Rows()
		totalValues += len(part.Values)
	}

	values := make([]float64, 0, totalValues)
	for _, part := range parts {
		values = append(values, part.Values...)
	}
	shape := make([]int64, 0, len(rowShape)+1)
	shape = append(shape, int64(totalRows))
	shape = append(shape, rowShape...)
	return Tensor{Shape: shape, Values: values}, nil
}

// Map returns a new tensor with fn applied to every value.
func (t Tensor) Map(fn func(float64) float64) Tensor {
	values := make([]float64, len(t.Values))
	for i, v := range t.Values {
		values[i] = fn(v)
	}
	shape := make([]int64, len(t.Shape))
	copy(shape, t.Shape)
	return Tensor{Shape: shape, Values: values}
}

func sameDims(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
