package entity

import "time"

// UploadState is one step of the presigned-upload hand-off. The state
// machine is driven by transport events reported by the client and by
// the analysis service picking the upload up.
type UploadState string

const (
	UploadStateIdle               UploadState = "idle"
	UploadStateRequestingLocation UploadState = "requesting_location"
	UploadStateUploading          UploadState = "uploading"
	UploadStateAnalyzing          UploadState = "analyzing"
	UploadStateDone               UploadState = "done"
	UploadStateFailed             UploadState = "failed"
)

var uploadTransitions = map[UploadState][]UploadState{
	UploadStateIdle:               {UploadStateRequestingLocation, UploadStateFailed},
	UploadStateRequestingLocation: {UploadStateUploading, UploadStateFailed},
	UploadStateUploading:          {UploadStateUploading, UploadStateAnalyzing, UploadStateFailed},
	UploadStateAnalyzing:          {UploadStateDone, UploadStateFailed},
	UploadStateDone:               {},
	UploadStateFailed:             {},
}

// CanTransitionTo reports whether moving to next is a legal step.
// Uploading may repeat to carry progress updates.
func (s UploadState) CanTransitionTo(next UploadState) bool {
	for _, allowed := range uploadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s UploadState) Valid() bool {
	_, ok := uploadTransitions[s]
	return ok
}

type UploadSession struct {
	ID          string      `json:"id"`
	S3Key       string      `json:"s3_key"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"content_type"`
	State       UploadState `json:"state"`
	Progress    int         `json:"progress"`
	Reason      string      `json:"reason,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
