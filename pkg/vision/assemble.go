package vision

import "fmt"

// ProcessingInfo records which processing path and parameters produced
// a result. Field names and values are part of the external contract;
// the effective tuning values are echoed so a caller overriding them
// can see exactly what was applied.
type ProcessingInfo struct {
	Method          Method  `json:"method"`
	WindowSize      string  `json:"window_size"`
	Overlap         int     `json:"overlap"`
	IoUThreshold    float64 `json:"iou_threshold"`
	ConfidenceFloor float64 `json:"confidence_floor"`
	OriginalSize    string  `json:"original_size"`
	OriginalFormat  string  `json:"original_format,omitempty"`
	Source          string  `json:"source,omitempty"`
}

// Result is the pipeline's terminal artifact: the merged global
// detections plus provenance metadata. Immutable after assembly.
type Result struct {
	Predictions     []Detection    `json:"predictions"`
	ImageWidth      int            `json:"image_width"`
	ImageHeight     int            `json:"image_height"`
	TotalDetections int            `json:"total_detections"`
	ProcessingInfo  ProcessingInfo `json:"processing_info"`
}

// Assemble packages merged detections into a Result. TotalDetections
// always equals len(Predictions).
func Assemble(width, height int, detections []Detection, method Method, cfg Config) Result {
	if detections == nil {
		detections = []Detection{}
	}

	return Result{
		Predictions:     detections,
		ImageWidth:      width,
		ImageHeight:     height,
		TotalDetections: len(detections),
		ProcessingInfo: ProcessingInfo{
			Method:          method,
			WindowSize:      fmt.Sprintf("%dx%d", cfg.WindowSize, cfg.WindowSize),
			Overlap:         cfg.Overlap,
			IoUThreshold:    cfg.IoUThreshold,
			ConfidenceFloor: cfg.ConfidenceFloor,
			OriginalSize:    fmt.Sprintf("%dx%d", width, height),
		},
	}
}
