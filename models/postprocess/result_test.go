package postprocess

import (
	"math"
	"testing"

	"github.com/nvr-ai/go-ensemble/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetectionFromRecord(t *testing.T) {
	d, err := NewDetectionFromRecord([]float32{4, 1, 2, 3, 5, 0.75, 2})
	require.NoError(t, err)

	assert.Equal(t, Detection{
		ImageID: 4,
		Box:     images.Rect{X1: 1, Y1: 2, X2: 3, Y2: 5},
		Score:   0.75,
		Class:   2,
	}, d)
	assert.Equal(t, []float32{4, 1, 2, 3, 5, 0.75, 2}, d.Record())
}

func TestNewDetectionFromRecord_InvalidShape(t *testing.T) {
	for _, record := range [][]float32{
		nil,
		{1, 2, 3, 4, 5, 6},
		{1, 2, 3, 4, 5, 6, 0, 8},
	} {
		_, err := NewDetectionFromRecord(record)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidShape))

		var shapeErr *InvalidShapeError
		require.True(t, errors.As(err, &shapeErr))
		assert.Equal(t, len(record), shapeErr.Got)
	}
}

func TestNewDetectionFromRecord_InvalidClass(t *testing.T) {
	tests := []struct {
		name  string
		class float32
	}{
		{"fractional", 1.5},
		{"negative fractional", -0.5},
		{"beyond int32", 1e10},
		{"NaN", float32(math.NaN())},
		{"Inf", float32(math.Inf(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetectionFromRecord([]float32{0, 0, 0, 1, 1, 0.5, tt.class})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidClass))
			assert.False(t, errors.Is(err, ErrInvalidShape))
		})
	}
}

func TestNewDetectionFromRecord_NegativeClassParses(t *testing.T) {
	d, err := NewDetectionFromRecord([]float32{0, 0, 0, 1, 1, 0.5, -3})
	require.NoError(t, err)
	assert.Equal(t, -3, d.Class)
}

func TestDetectionsFromRecords_ReportsIndex(t *testing.T) {
	records := [][]float32{
		{0, 0, 0, 1, 1, 0.5, 0},
		{0, 0, 0, 1, 1, 0.5, 0},
		{0, 0, 0, 1, 1, 0.5},
	}

	detections, err := DetectionsFromRecords(records)
	require.Error(t, err)
	assert.Nil(t, detections)

	var shapeErr *InvalidShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 2, shapeErr.Index)
	assert.Equal(t, 6, shapeErr.Got)
	assert.Equal(t, "invalid detection shape: record 2 has 6 fields, expected 7", err.Error())
}

func TestDetectionsFromRecords_ClassErrorCarriesIndex(t *testing.T) {
	_, err := DetectionsFromRecords([][]float32{
		{0, 0, 0, 1, 1, 0.5, 0},
		{0, 0, 0, 1, 1, 0.5, 2.5},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidClass))
	assert.Contains(t, err.Error(), "record 1")
}

func TestRecordsFromDetections(t *testing.T) {
	records := [][]float32{
		{1, 0, 0, 10, 10, 0.9, 0},
		{2, 5, 5, 6, 6, 0.1, 3},
	}
	detections, err := DetectionsFromRecords(records)
	require.NoError(t, err)
	assert.Equal(t, records, RecordsFromDetections(detections))
	assert.Empty(t, RecordsFromDetections(nil))
}

func TestDetectionString(t *testing.T) {
	d := Detection{ImageID: 7, Box: images.Rect{X1: 1, Y1: 2, X2: 3, Y2: 4}, Score: 0.5, Class: 1}
	assert.Equal(t, "Detection image=7 class=1 (confidence 0.500000): (1.00, 2.00), (3.00, 4.00)", d.String())
}
