package postprocess

import (
	"github.com/nvr-ai/go-ensemble/images"
	"gonum.org/v1/gonum/stat"
)

// MatchThreshold is the IoU a detection must strictly exceed to join a cluster.
const MatchThreshold float32 = 0.55

// Cluster is a group of same-class detections believed to be one object.
//
// Members are append-only. The running average is recomputed from every
// member after each Add and is what later detections are matched against.
type Cluster struct {
	members []Detection
	average Detection
}

// NewCluster starts a cluster whose only member, and average, is seed.
func NewCluster(seed Detection) *Cluster {
	return &Cluster{
		members: []Detection{seed},
		average: seed,
	}
}

// Add appends d and recomputes the running average over all members.
func (c *Cluster) Add(d Detection) {
	c.members = append(c.members, d)
	// members is never empty here, so the error is always nil.
	c.average, _ = AverageDetections(c.members)
}

// Average returns the current running average.
func (c *Cluster) Average() Detection {
	return c.average
}

// Members returns a copy of the cluster members in insertion order.
func (c *Cluster) Members() []Detection {
	out := make([]Detection, len(c.members))
	copy(out, c.members)
	return out
}

// Len returns the number of members.
func (c *Cluster) Len() int {
	return len(c.members)
}

// AverageDetections collapses a cluster into one detection.
//
// ImageID and Class are taken from the first member. The four box corners and
// the score are independent arithmetic means over all members.
//
// Arguments:
//   - members: The cluster members, in insertion order.
//
// Returns:
//   - Detection: The averaged detection.
//   - error: ErrEmptyCluster if members is empty.
func AverageDetections(members []Detection) (Detection, error) {
	if len(members) == 0 {
		return Detection{}, ErrEmptyCluster
	}
	if len(members) == 1 {
		return members[0], nil
	}

	// Columns are x1, y1, x2, y2, score.
	var columns [5][]float64
	for i := range columns {
		columns[i] = make([]float64, len(members))
	}
	for i, m := range members {
		columns[0][i] = float64(m.Box.X1)
		columns[1][i] = float64(m.Box.Y1)
		columns[2][i] = float64(m.Box.X2)
		columns[3][i] = float64(m.Box.Y2)
		columns[4][i] = float64(m.Score)
	}

	mean := func(col int) float32 {
		return float32(stat.Mean(columns[col], nil))
	}

	return Detection{
		ImageID: members[0].ImageID,
		Box: images.Rect{
			X1: mean(0),
			Y1: mean(1),
			X2: mean(2),
			Y2: mean(3),
		},
		Score: mean(4),
		Class: members[0].Class,
	}, nil
}

// FindMatchingCluster returns the index of the cluster average with the
// highest IoU against d, provided that IoU is strictly greater than
// MatchThreshold. Ties resolve to the lowest index.
//
// Arguments:
//   - averages: The running averages of the current clusters of one class.
//   - d: The detection to place.
//
// Returns:
//   - int: The matched cluster index, only meaningful when ok is true.
//   - bool: Whether any cluster matched. Always false for an empty averages slice.
func FindMatchingCluster(averages []Detection, d Detection) (index int, ok bool) {
	if len(averages) == 0 {
		return 0, false
	}

	boxes := make([]images.Rect, len(averages))
	for i, a := range averages {
		boxes[i] = a.Box
	}
	ious := images.BatchIoU(d.Box, boxes)

	best := 0
	for i := 1; i < len(ious); i++ {
		if ious[i] > ious[best] {
			best = i
		}
	}

	if ious[best] > MatchThreshold {
		return best, true
	}
	return 0, false
}
