package vision

import "testing"

func TestRemapOffsetsByWindowOrigin(t *testing.T) {
	local := det(10, 10, 50, 50, 0.9, 1)
	global := Remap(local, Window{X: 640, Y: 0, W: 640, H: 640})

	want := [4]float64{650, 10, 690, 50}
	if global.BBox != want {
		t.Errorf("remapped bbox = %v, want %v", global.BBox, want)
	}
	if global.Confidence != local.Confidence || global.ClassID != local.ClassID {
		t.Error("remap must not touch confidence or class")
	}
}

func TestRemapDirectWindowIsNoOp(t *testing.T) {
	local := det(5, 6, 7, 8, 0.5, 2)
	global := Remap(local, Window{X: 0, Y: 0, W: 640, H: 640})

	if global.BBox != local.BBox {
		t.Errorf("direct-path remap changed bbox: %v -> %v", local.BBox, global.BBox)
	}
}

func TestAssembleCountInvariant(t *testing.T) {
	cases := [][]Detection{
		nil,
		{},
		{det(0, 0, 10, 10, 0.9, 1)},
		{det(0, 0, 10, 10, 0.9, 1), det(20, 20, 30, 30, 0.5, 2)},
	}

	cfg := Config{WindowSize: 640, Overlap: 64, IoUThreshold: 0.5, ConfidenceFloor: 0.25}

	for _, dets := range cases {
		r := Assemble(1280, 960, dets, MethodSlidingWindow, cfg)
		if r.TotalDetections != len(r.Predictions) {
			t.Errorf("total_detections %d != len(predictions) %d", r.TotalDetections, len(r.Predictions))
		}
		if r.Predictions == nil {
			t.Error("predictions must serialize as an empty list, not null")
		}
		if r.ProcessingInfo.WindowSize != "640x640" {
			t.Errorf("window_size = %q, want 640x640", r.ProcessingInfo.WindowSize)
		}
		if r.ProcessingInfo.OriginalSize != "1280x960" {
			t.Errorf("original_size = %q, want 1280x960", r.ProcessingInfo.OriginalSize)
		}
	}
}

func TestAssembleEchoesEffectiveConfig(t *testing.T) {
	cfg := Config{WindowSize: 512, Overlap: 32, IoUThreshold: 0.4, ConfidenceFloor: 0.3}

	r := Assemble(2048, 2048, nil, MethodSlidingWindow, cfg)

	info := r.ProcessingInfo
	if info.WindowSize != "512x512" {
		t.Errorf("window_size = %q, want 512x512", info.WindowSize)
	}
	if info.Overlap != 32 {
		t.Errorf("overlap = %d, want 32", info.Overlap)
	}
	if info.IoUThreshold != 0.4 {
		t.Errorf("iou_threshold = %v, want 0.4", info.IoUThreshold)
	}
	if info.ConfidenceFloor != 0.3 {
		t.Errorf("confidence_floor = %v, want 0.3", info.ConfidenceFloor)
	}
}
