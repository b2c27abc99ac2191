package postprocess

import (
	"log/slog"
	"time"

	"github.com/nvr-ai/go-ensemble/logging"
	"golang.org/x/sync/errgroup"
)

// Stats describes the last Ensemble call.
type Stats struct {
	// Inputs is the number of detections passed in.
	Inputs int
	// Ignored is the number of detections whose class was out of range.
	Ignored int
	// Outputs is the number of merged detections returned.
	Outputs int
	// ClustersPerClass maps class id to cluster count, for non-empty classes only.
	ClustersPerClass map[int]int
	// Duration is the wall time of the call.
	Duration time.Duration
}

// Ensembler runs EnsembleDetections with a fixed configuration.
//
// An Ensembler is not safe for concurrent use; Stats reflects the last call.
type Ensembler struct {
	config *EnsembleConfig
	stats  Stats
}

// NewEnsembler creates an Ensembler. A nil config uses DefaultEnsembleConfig.
//
// Arguments:
//   - config: The ensembling configuration.
//
// Returns:
//   - *Ensembler: The configured ensembler.
//
// @example
//
//	e := NewEnsembler(&EnsembleConfig{NumClasses: 3, NumWorkers: 4})
//	merged := e.Ensemble(append(modelA, modelB...))
func NewEnsembler(config *EnsembleConfig) *Ensembler {
	if config == nil {
		config = DefaultEnsembleConfig()
	}
	return &Ensembler{config: config}
}

// Config returns the configuration in use.
func (e *Ensembler) Config() EnsembleConfig {
	return *e.config
}

// Stats returns the statistics of the last Ensemble call.
func (e *Ensembler) Stats() Stats {
	return e.stats
}

// Ensemble clusters and averages detections. The result equals
// EnsembleDetections(detections, NumClasses) regardless of NumWorkers.
//
// With NumWorkers > 1 each class partition is clustered in its own goroutine.
// Partitions are built before dispatch and every worker writes only its own
// slot, and the slots are merged in class order before the final sort.
func (e *Ensembler) Ensemble(detections []Detection) []Detection {
	start := time.Now()
	log := logging.Logger()

	partitions := PartitionByClass(detections, e.config.NumClasses)
	clustered := make([][]*Cluster, len(partitions))

	if e.config.NumWorkers > 1 {
		var g errgroup.Group
		g.SetLimit(e.config.NumWorkers)
		for i, p := range partitions {
			g.Go(func() error {
				clustered[i] = BuildClusters(p.Detections)
				return nil
			})
		}
		// Workers never fail.
		_ = g.Wait()
	} else {
		for i, p := range partitions {
			clustered[i] = BuildClusters(p.Detections)
		}
	}

	stats := Stats{
		Inputs:           len(detections),
		ClustersPerClass: make(map[int]int, len(partitions)),
	}
	placed := 0
	results := make([]Detection, 0, len(detections))
	for i, clusters := range clustered {
		p := partitions[i]
		placed += len(p.Detections)
		stats.ClustersPerClass[p.Class] = len(clusters)
		if e.config.Debug {
			log.Debug("clustered class",
				slog.Int("class", p.Class),
				slog.Int("detections", len(p.Detections)),
				slog.Int("clusters", len(clusters)))
		}
		results = appendAverages(results, clusters)
	}

	SortByScore(results)

	stats.Ignored = len(detections) - placed
	stats.Outputs = len(results)
	stats.Duration = time.Since(start)
	e.stats = stats

	if e.config.Debug {
		log.Debug("ensembled detections",
			slog.Int("inputs", stats.Inputs),
			slog.Int("ignored", stats.Ignored),
			slog.Int("outputs", stats.Outputs),
			slog.Duration("duration", stats.Duration))
	}

	return results
}
