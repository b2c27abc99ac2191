package postprocess

import "sort"

// ClassPartition holds the detections of one class in input order.
type ClassPartition struct {
	Class      int
	Detections []Detection
}

// PartitionByClass buckets detections by class in a single stable pass.
//
// Only classes that occur are returned, in ascending class order. Detections
// whose class falls outside [0, numClasses) are not placed in any partition.
// Memory is proportional to the input, not to numClasses.
//
// Arguments:
//   - detections: The full detection set. It is not modified.
//   - numClasses: The number of classes.
//
// Returns:
//   - []ClassPartition: One non-empty partition per present class. Nil if
//     nothing falls in range.
func PartitionByClass(detections []Detection, numClasses int) []ClassPartition {
	if numClasses <= 0 {
		return nil
	}

	byClass := make(map[int][]Detection)
	for _, d := range detections {
		if d.Class < 0 || d.Class >= numClasses {
			continue
		}
		byClass[d.Class] = append(byClass[d.Class], d)
	}
	if len(byClass) == 0 {
		return nil
	}

	partitions := make([]ClassPartition, 0, len(byClass))
	for class, members := range byClass {
		partitions = append(partitions, ClassPartition{Class: class, Detections: members})
	}
	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Class < partitions[j].Class
	})
	return partitions
}

// BuildClusters greedily clusters the detections of one class.
//
// The first detection seeds cluster 0. Each later detection joins the cluster
// returned by FindMatchingCluster, or starts a new cluster when nothing
// matches. Clusters are returned in creation order.
//
// Arguments:
//   - partition: Detections of a single class in input order.
//
// Returns:
//   - []*Cluster: The clusters. Nil for an empty partition.
func BuildClusters(partition []Detection) []*Cluster {
	if len(partition) == 0 {
		return nil
	}

	clusters := []*Cluster{NewCluster(partition[0])}
	averages := []Detection{partition[0]}

	for _, d := range partition[1:] {
		k, ok := FindMatchingCluster(averages, d)
		if !ok {
			clusters = append(clusters, NewCluster(d))
			averages = append(averages, d)
			continue
		}
		clusters[k].Add(d)
		averages[k] = clusters[k].Average()
	}

	return clusters
}

// EnsembleDetections merges detections from several sources into one set.
//
// Each class in [0, numClasses) is clustered independently with
// BuildClusters. The cluster averages of all classes are then sorted by
// descending score. The sort is stable, so equal scores keep class order and,
// within a class, cluster creation order.
//
// Arguments:
//   - detections: The concatenated detection sets. They are not modified.
//   - numClasses: The number of classes to consider.
//
// Returns:
//   - []Detection: One averaged detection per cluster, highest score first.
//     Empty, never nil, when there is nothing to merge.
//
// Example:
//
// ```go
//
//	merged := EnsembleDetections([]Detection{
//	    {ImageID: 1, Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.9},
//	    {ImageID: 1, Box: images.Rect{X1: 1, Y1: 1, X2: 11, Y2: 11}, Score: 0.8},
//	    {ImageID: 1, Box: images.Rect{X1: 50, Y1: 50, X2: 60, Y2: 60}, Score: 0.7},
//	}, 1)
//	// merged[0]: box (0.5, 0.5, 10.5, 10.5), score 0.85
//	// merged[1]: box (50, 50, 60, 60), score 0.7
//
// ```
func EnsembleDetections(detections []Detection, numClasses int) []Detection {
	partitions := PartitionByClass(detections, numClasses)

	results := make([]Detection, 0, len(detections))
	for _, p := range partitions {
		results = appendAverages(results, BuildClusters(p.Detections))
	}

	SortByScore(results)
	return results
}

// EnsembleRecords is EnsembleDetections over flat 7-field records.
//
// Every record is validated before any clustering starts; a malformed record
// aborts the call and no partial result is returned.
func EnsembleRecords(records [][]float32, numClasses int) ([][]float32, error) {
	detections, err := DetectionsFromRecords(records)
	if err != nil {
		return nil, err
	}
	return RecordsFromDetections(EnsembleDetections(detections, numClasses)), nil
}

// SortByScore stable-sorts detections by descending score in place.
func SortByScore(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})
}

func appendAverages(dst []Detection, clusters []*Cluster) []Detection {
	for _, c := range clusters {
		dst = append(dst, c.Average())
	}
	return dst
}
