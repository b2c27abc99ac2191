package postprocess

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidShape is matched by every *InvalidShapeError.
	ErrInvalidShape = errors.New("invalid detection shape")
	// ErrInvalidClass means a class_id field is not an integer.
	ErrInvalidClass = errors.New("invalid class id")
	// ErrEmptyCluster is returned when averaging zero detections.
	ErrEmptyCluster = errors.New("cannot average an empty cluster")
)

// InvalidShapeError reports a detection record or tensor that is not made of
// RecordSize-wide rows. It is fatal for the whole batch.
type InvalidShapeError struct {
	// Index of the offending record, or -1 when the whole input is malformed.
	Index int
	// Got is the number of fields found.
	Got int
}

func (e *InvalidShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: expected %d fields per record, got %d", ErrInvalidShape, RecordSize, e.Got)
	}
	return fmt.Sprintf("%s: record %d has %d fields, expected %d", ErrInvalidShape, e.Index, e.Got, RecordSize)
}

// Is lets errors.Is(err, ErrInvalidShape) match.
func (e *InvalidShapeError) Is(target error) bool {
	return target == ErrInvalidShape
}
