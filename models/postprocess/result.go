// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-ensemble/images"
	"github.com/pkg/errors"
)

// RecordSize is the number of fields in a flat detection record:
//
//	[image_id, x_min, y_min, x_max, y_max, confidence, class_id]
const RecordSize = 7

// Detection is a single detection record.
type Detection struct {
	// ImageID identifies the source image. It is opaque and never averaged.
	ImageID float32
	// The bounding box of the detection.
	Box images.Rect
	// The confidence score of the detection.
	Score float32
	// The predicted class index of the detection.
	Class int
}

// NewDetectionFromRecord converts a flat 7-field record into a Detection.
//
// Arguments:
//   - record: The flat record in [image_id, x_min, y_min, x_max, y_max, confidence, class_id] order.
//
// Returns:
//   - Detection: The parsed detection.
//   - error: An *InvalidShapeError if the record does not have exactly RecordSize fields, or
//     an error wrapping ErrInvalidClass if class_id is not an integer. Negative ids parse
//     and are later ignored like any other out-of-range class.
func NewDetectionFromRecord(record []float32) (Detection, error) {
	if len(record) != RecordSize {
		return Detection{}, &InvalidShapeError{Index: -1, Got: len(record)}
	}

	class := record[6]
	if math32.IsNaN(class) || math32.IsInf(class, 0) || class != math32.Trunc(class) ||
		class < math.MinInt32 || class > math.MaxInt32 {
		return Detection{}, errors.Wrapf(ErrInvalidClass, "class_id %v", class)
	}

	return Detection{
		ImageID: record[0],
		Box: images.Rect{
			X1: record[1],
			Y1: record[2],
			X2: record[3],
			Y2: record[4],
		},
		Score: record[5],
		Class: int(class),
	}, nil
}

// Record returns the detection in flat 7-field form.
func (d Detection) Record() []float32 {
	return []float32{d.ImageID, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2, d.Score, float32(d.Class)}
}

func (d Detection) String() string {
	return fmt.Sprintf("Detection image=%v class=%d (confidence %f): %s", d.ImageID, d.Class, d.Score, d.Box)
}

// DetectionsFromRecords converts every record, aborting on the first bad one.
//
// Errors carry the index of the offending record.
func DetectionsFromRecords(records [][]float32) ([]Detection, error) {
	detections := make([]Detection, 0, len(records))
	for i, record := range records {
		d, err := NewDetectionFromRecord(record)
		if err != nil {
			var shapeErr *InvalidShapeError
			if errors.As(err, &shapeErr) {
				shapeErr.Index = i
				return nil, shapeErr
			}
			return nil, errors.Wrapf(err, "record %d", i)
		}
		detections = append(detections, d)
	}
	return detections, nil
}

// RecordsFromDetections flattens detections back into 7-field records.
func RecordsFromDetections(detections []Detection) [][]float32 {
	records := make([][]float32, len(detections))
	for i, d := range detections {
		records[i] = d.Record()
	}
	return records
}
