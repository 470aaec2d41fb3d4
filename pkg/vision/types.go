package vision

import (
	"fmt"
	"math"
)

// Detection is one predicted object instance. BBox is [x1, y1, x2, y2];
// the coordinate frame (window-local vs global) is tracked by the caller,
// the two are never mixed in one collection.
type Detection struct {
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
}

// Area returns the bbox area in square pixels.
func (d Detection) Area() float64 {
	return (d.BBox[2] - d.BBox[0]) * (d.BBox[3] - d.BBox[1])
}

// WellFormed reports whether the detection has positive area and a
// confidence inside [0, 1]. Detections failing this are dropped before
// merging, they never reach the merger.
func (d Detection) WellFormed() bool {
	if d.BBox[2] <= d.BBox[0] || d.BBox[3] <= d.BBox[1] {
		return false
	}
	return d.Confidence >= 0 && d.Confidence <= 1
}

// Window is an axis-aligned rectangle fully contained within the image
// extent. Windows are ephemeral, generated fresh per request.
type Window struct {
	X int
	Y int
	W int
	H int
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", w.W, w.H, w.X, w.Y)
}

// IoU computes Intersection-over-Union of two [x1, y1, x2, y2] boxes.
// A union of zero area yields 0.
func IoU(a, b [4]float64) float64 {
	x1 := math.Max(a[0], b[0])
	y1 := math.Max(a[1], b[1])
	x2 := math.Min(a[2], b[2])
	y2 := math.Min(a[3], b[3])

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	intersection := (x2 - x1) * (y2 - y1)

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}
