package analysis

import (
	"SlideScope/internal/entity"
	"SlideScope/pkg/vision"
)

// PipelineOverrides lets a caller tune the pipeline per request. Unset
// fields fall back to the values the server was configured with; the
// effective configuration is echoed in the result's processing_info.
type PipelineOverrides struct {
	WindowSize      *int     `json:"window_size" query:"window_size" validate:"omitempty,min=1"`
	Overlap         *int     `json:"overlap" query:"overlap" validate:"omitempty,min=0"`
	IoUThreshold    *float64 `json:"iou_threshold" query:"iou_threshold" validate:"omitempty,min=0,max=1"`
	ConfidenceFloor *float64 `json:"confidence_floor" query:"confidence_floor" validate:"omitempty,min=0,max=1"`
}

type AnalyzeS3Request struct {
	S3Key     string `json:"s3_key" validate:"required"`
	SessionID string `json:"session_id"`
	PipelineOverrides
}

type AnalyzeTestImageRequest struct {
	TestImageName string `json:"test_image_name" validate:"required"`
	PipelineOverrides
}

type AnalysisResponse struct {
	vision.Result
}

type TestImage struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type TestImagesResponse struct {
	TestImages []TestImage `json:"test_images"`
}

type HistoryResponse struct {
	Data []entity.AnalysisRecord `json:"data"`
}

type AnalysisRecordResponse struct {
	Data entity.AnalysisRecord `json:"data"`
}
