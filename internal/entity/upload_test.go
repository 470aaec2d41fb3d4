package entity

import "testing"

func TestUploadStateTransitions(t *testing.T) {
	cases := []struct {
		name string
		from UploadState
		to   UploadState
		want bool
	}{
		{"idle to requesting location", UploadStateIdle, UploadStateRequestingLocation, true},
		{"requesting location to uploading", UploadStateRequestingLocation, UploadStateUploading, true},
		{"uploading repeats for progress", UploadStateUploading, UploadStateUploading, true},
		{"uploading to analyzing", UploadStateUploading, UploadStateAnalyzing, true},
		{"analyzing to done", UploadStateAnalyzing, UploadStateDone, true},
		{"any step may fail", UploadStateRequestingLocation, UploadStateFailed, true},
		{"uploading may fail", UploadStateUploading, UploadStateFailed, true},
		{"analyzing may fail", UploadStateAnalyzing, UploadStateFailed, true},
		{"no skipping upload", UploadStateRequestingLocation, UploadStateAnalyzing, false},
		{"no skipping analysis", UploadStateUploading, UploadStateDone, false},
		{"done is terminal", UploadStateDone, UploadStateUploading, false},
		{"done cannot fail", UploadStateDone, UploadStateFailed, false},
		{"failed is terminal", UploadStateFailed, UploadStateUploading, false},
		{"no going backwards", UploadStateAnalyzing, UploadStateUploading, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestUploadStateValid(t *testing.T) {
	for _, s := range []UploadState{
		UploadStateIdle, UploadStateRequestingLocation, UploadStateUploading,
		UploadStateAnalyzing, UploadStateDone, UploadStateFailed,
	} {
		if !s.Valid() {
			t.Errorf("state %q should be valid", s)
		}
	}

	if UploadState("paused").Valid() {
		t.Error("unknown state should not be valid")
	}
}
