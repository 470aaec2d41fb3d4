package vision

import "sort"

// Merge deduplicates detections that represent the same physical object
// seen from multiple overlapping windows, using class-aware greedy
// non-maximum suppression over global-coordinate detections.
//
// Detections are partitioned by class. Within a class they are sorted
// by descending confidence, ties broken by ascending x1 then y1 so the
// output is reproducible for identical input. The highest remaining
// detection is kept and every same-class detection whose IoU with it
// exceeds iouThreshold is discarded. Classes are processed in ascending
// class id order; the overall output order carries no further meaning.
//
// Merge is idempotent: running it on its own output returns an
// identical set.
func Merge(detections []Detection, iouThreshold float64) []Detection {
	if len(detections) == 0 {
		return []Detection{}
	}

	byClass := make(map[int][]Detection)
	for _, d := range detections {
		byClass[d.ClassID] = append(byClass[d.ClassID], d)
	}

	classIDs := make([]int, 0, len(byClass))
	for id := range byClass {
		classIDs = append(classIDs, id)
	}
	sort.Ints(classIDs)

	kept := make([]Detection, 0, len(detections))
	for _, id := range classIDs {
		kept = append(kept, suppressClass(byClass[id], iouThreshold)...)
	}
	return kept
}

func suppressClass(detections []Detection, iouThreshold float64) []Detection {
	sort.Slice(detections, func(i, j int) bool {
		a, b := detections[i], detections[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.BBox[0] != b.BBox[0] {
			return a.BBox[0] < b.BBox[0]
		}
		return a.BBox[1] < b.BBox[1]
	})

	kept := make([]Detection, 0, len(detections))
	suppressed := make([]bool, len(detections))

	for i, d := range detections {
		if suppressed[i] {
			continue
		}
		kept = append(kept, d)

		for j := i + 1; j < len(detections); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(d.BBox, detections[j].BBox) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
