package entity

import "time"

type AnalysisRecord struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	SourceKey       string    `json:"source_key"`
	ImageWidth      int       `json:"image_width"`
	ImageHeight     int       `json:"image_height"`
	Method          string    `json:"method"`
	WindowSize      string    `json:"window_size"`
	OriginalFormat  string    `json:"original_format"`
	TotalDetections int       `json:"total_detections"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}
