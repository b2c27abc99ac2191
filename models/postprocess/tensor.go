package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DetectionsFromTensor reads an [N, 7] tensor of detection records.
//
// The tensor must be two dimensional with RecordSize columns and a float32 or
// float64 backing. A nil tensor is an empty detection set.
//
// Arguments:
//   - t: The detection tensor in row-major order.
//
// Returns:
//   - []Detection: The detections, one per row.
//   - error: An *InvalidShapeError for a wrongly shaped tensor, ErrInvalidShape for an
//     unsupported dtype, or an ErrInvalidClass error for a bad class column.
func DetectionsFromTensor(t tensor.Tensor) ([]Detection, error) {
	if t == nil {
		return []Detection{}, nil
	}
	if d, ok := t.(*tensor.Dense); ok && d == nil {
		return []Detection{}, nil
	}

	shape := t.Shape()
	if t.Dims() != 2 {
		got := 0
		if len(shape) > 0 {
			got = shape[len(shape)-1]
		}
		return nil, &InvalidShapeError{Index: -1, Got: got}
	}
	if shape[1] != RecordSize {
		return nil, &InvalidShapeError{Index: -1, Got: shape[1]}
	}

	var flat []float32
	switch data := t.Data().(type) {
	case []float32:
		flat = data
	case []float64:
		flat = make([]float32, len(data))
		for i, v := range data {
			flat[i] = float32(v)
		}
	default:
		return nil, errors.Wrapf(ErrInvalidShape, "unsupported tensor dtype %v", t.Dtype())
	}

	rows := shape[0]
	if len(flat) < rows*RecordSize {
		return nil, errors.Wrapf(ErrInvalidShape, "tensor backing holds %d values, need %d", len(flat), rows*RecordSize)
	}
	records := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		records[i] = flat[i*RecordSize : (i+1)*RecordSize]
	}
	return DetectionsFromRecords(records)
}

// DetectionsToTensor packs detections into a new [N, 7] float32 tensor.
//
// Returns nil when there are no detections.
func DetectionsToTensor(detections []Detection) *tensor.Dense {
	if len(detections) == 0 {
		return nil
	}

	backing := make([]float32, 0, len(detections)*RecordSize)
	for _, d := range detections {
		backing = append(backing, d.Record()...)
	}
	return tensor.New(
		tensor.WithShape(len(detections), RecordSize),
		tensor.WithBacking(backing),
	)
}

// EnsembleTensor is EnsembleDetections over an [N, 7] tensor.
//
// A malformed tensor aborts the call with no partial result.
func EnsembleTensor(t tensor.Tensor, numClasses int) (*tensor.Dense, error) {
	detections, err := DetectionsFromTensor(t)
	if err != nil {
		return nil, err
	}
	return DetectionsToTensor(EnsembleDetections(detections, numClasses)), nil
}
