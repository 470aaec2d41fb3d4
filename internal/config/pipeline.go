package config

import (
	"SlideScope/pkg/vision"
	"os"
	"strconv"
)

// Pipeline defaults mirror the detector's native input resolution.
// Every value can be overridden per request.
const (
	defaultWindowSize      = 640
	defaultOverlap         = 64
	defaultIoUThreshold    = 0.5
	defaultConfidenceFloor = 0.25
	defaultMaxConcurrency  = 4
)

func NewPipelineConfig() vision.Config {
	return vision.Config{
		WindowSize:      envInt("PIPELINE_WINDOW_SIZE", defaultWindowSize),
		Overlap:         envInt("PIPELINE_OVERLAP", defaultOverlap),
		IoUThreshold:    envFloat("PIPELINE_IOU_THRESHOLD", defaultIoUThreshold),
		ConfidenceFloor: envFloat("PIPELINE_CONFIDENCE_FLOOR", defaultConfidenceFloor),
		MaxConcurrency:  envInt("PIPELINE_MAX_CONCURRENCY", defaultMaxConcurrency),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}
