package vision

import (
	"reflect"
	"testing"
)

func det(x1, y1, x2, y2, conf float64, classID int) Detection {
	return Detection{
		BBox:       [4]float64{x1, y1, x2, y2},
		Confidence: conf,
		ClassID:    classID,
		ClassName:  "mitotic_figure",
	}
}

func TestIoU(t *testing.T) {
	cases := []struct {
		name string
		a    [4]float64
		b    [4]float64
		want float64
	}{
		{"identical", [4]float64{0, 0, 10, 10}, [4]float64{0, 0, 10, 10}, 1.0},
		{"disjoint", [4]float64{0, 0, 10, 10}, [4]float64{20, 20, 30, 30}, 0.0},
		{"touching edge", [4]float64{0, 0, 10, 10}, [4]float64{10, 0, 20, 10}, 0.0},
		{"half overlap", [4]float64{0, 0, 10, 10}, [4]float64{5, 0, 15, 10}, 50.0 / 150.0},
		{"zero area union", [4]float64{5, 5, 5, 5}, [4]float64{5, 5, 5, 5}, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IoU(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("IoU = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeSuppressesHighOverlap(t *testing.T) {
	// IoU of these two boxes is well above 0.5; the 0.9 one survives.
	input := []Detection{
		det(102, 100, 202, 200, 0.6, 3),
		det(100, 100, 200, 200, 0.9, 3),
	}

	merged := Merge(input, 0.5)

	if len(merged) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(merged))
	}
	if merged[0].Confidence != 0.9 {
		t.Errorf("kept confidence = %v, want 0.9", merged[0].Confidence)
	}
}

func TestMergePreservesLowOverlap(t *testing.T) {
	input := []Detection{
		det(0, 0, 100, 100, 0.9, 1),
		det(90, 90, 190, 190, 0.6, 1), // IoU ~ 0.005
	}

	merged := Merge(input, 0.5)

	if len(merged) != 2 {
		t.Fatalf("expected both detections kept, got %d", len(merged))
	}
}

func TestMergeIsClassAware(t *testing.T) {
	// Same box, different classes: never merged regardless of IoU.
	input := []Detection{
		det(100, 100, 200, 200, 0.9, 1),
		det(100, 100, 200, 200, 0.8, 2),
	}

	merged := Merge(input, 0.5)

	if len(merged) != 2 {
		t.Fatalf("expected 2 detections across classes, got %d", len(merged))
	}
}

func TestMergeIdempotent(t *testing.T) {
	input := []Detection{
		det(0, 0, 100, 100, 0.9, 1),
		det(2, 2, 102, 102, 0.8, 1),
		det(500, 500, 600, 600, 0.7, 1),
		det(100, 100, 200, 200, 0.95, 2),
	}

	once := Merge(input, 0.5)
	twice := Merge(once, 0.5)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeDeterministicUnderTies(t *testing.T) {
	// Equal confidence ties break by ascending x1 then y1, so the
	// result is identical no matter the input order.
	a := det(10, 40, 60, 90, 0.8, 1)
	b := det(12, 40, 62, 90, 0.8, 1)
	c := det(10, 42, 60, 92, 0.8, 1)

	first := Merge([]Detection{a, b, c}, 0.5)
	second := Merge([]Detection{c, a, b}, 0.5)
	third := Merge([]Detection{b, c, a}, 0.5)

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(second, third) {
		t.Errorf("merge output depends on input order:\n%+v\n%+v\n%+v", first, second, third)
	}
	if len(first) == 0 || first[0].BBox[0] != 10 || first[0].BBox[1] != 40 {
		t.Errorf("tie-break should keep the lowest x1,y1 detection first, got %+v", first)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	merged := Merge(nil, 0.5)
	if merged == nil || len(merged) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", merged)
	}
}
