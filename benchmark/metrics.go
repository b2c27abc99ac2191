// Package benchmark - Run metrics for detection ensembling.
package benchmark

import (
	"encoding/json"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-ensemble/models/postprocess"
	"github.com/pkg/errors"
)

// RunMetrics captures one ensembling run.
type RunMetrics struct {
	RunID            string        `json:"run_id"`
	Timestamp        time.Time     `json:"timestamp"`
	TotalDuration    time.Duration `json:"total_duration"`
	SourceCount      int           `json:"source_count"`
	InputCount       int           `json:"input_count"`
	IgnoredCount     int           `json:"ignored_count"`
	OutputCount      int           `json:"output_count"`
	ClustersPerClass map[int]int   `json:"clusters_per_class"`
	// ReductionRatio is OutputCount / InputCount, 0 for an empty run.
	ReductionRatio float64       `json:"reduction_ratio"`
	MemoryStats    MemoryMetrics `json:"memory_stats"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Measure runs e over detections and records metrics for the run.
//
// Arguments:
//   - e: The configured ensembler.
//   - detections: The concatenated detection sets.
//   - sources: How many detection sets were concatenated.
//
// Returns:
//   - []postprocess.Detection: The ensembled detections.
//   - RunMetrics: Metrics for the run.
func Measure(e *postprocess.Ensembler, detections []postprocess.Detection, sources int) ([]postprocess.Detection, RunMetrics) {
	var startMem, endMem runtime.MemStats
	runtime.ReadMemStats(&startMem)

	started := time.Now()
	merged := e.Ensemble(detections)

	runtime.ReadMemStats(&endMem)

	stats := e.Stats()
	metrics := RunMetrics{
		RunID:            uuid.NewString(),
		Timestamp:        started,
		TotalDuration:    stats.Duration,
		SourceCount:      sources,
		InputCount:       stats.Inputs,
		IgnoredCount:     stats.Ignored,
		OutputCount:      stats.Outputs,
		ClustersPerClass: stats.ClustersPerClass,
		MemoryStats: MemoryMetrics{
			AllocBytes:      endMem.Alloc,
			TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
			NumGC:           endMem.NumGC - startMem.NumGC,
			HeapAllocBytes:  endMem.HeapAlloc,
		},
	}
	if stats.Inputs > 0 {
		metrics.ReductionRatio = float64(stats.Outputs) / float64(stats.Inputs)
	}

	return merged, metrics
}

// WriteJSON writes the metrics as indented JSON.
func (m RunMetrics) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode run metrics")
	}
	return nil
}
