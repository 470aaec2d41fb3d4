package upload

import "SlideScope/internal/entity"

type PresignedUploadRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type PresignedUploadResponse struct {
	PresignedURL string `json:"presigned_url"`
	S3Key        string `json:"s3_key"`
	SessionID    string `json:"session_id"`
	ExpiresIn    int    `json:"expires_in"`
}

type SessionUpdateRequest struct {
	State    entity.UploadState `json:"state" validate:"required"`
	Progress int                `json:"progress" validate:"min=0,max=100"`
	Reason   string             `json:"reason"`
}

type SessionResponse struct {
	Data entity.UploadSession `json:"data"`
}
