package vision

import "fmt"

// Config holds the tunable parameters of one pipeline invocation. It is
// fixed for the lifetime of a request; there is no shared mutable
// configuration behind it.
type Config struct {
	WindowSize      int
	Overlap         int
	IoUThreshold    float64
	ConfidenceFloor float64
	MaxConcurrency  int
}

// ConfigError reports an invalid Config. It is fatal and raised before
// any tiling occurs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pipeline config: %s %s", e.Field, e.Reason)
}

func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return &ConfigError{Field: "window_size", Reason: "must be positive"}
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return &ConfigError{Field: "overlap", Reason: fmt.Sprintf("must satisfy 0 <= overlap < window_size (%d)", c.WindowSize)}
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return &ConfigError{Field: "iou_threshold", Reason: "must be within [0, 1]"}
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return &ConfigError{Field: "confidence_floor", Reason: "must be within [0, 1]"}
	}
	if c.MaxConcurrency < 0 {
		return &ConfigError{Field: "max_concurrency", Reason: "must not be negative"}
	}
	return nil
}
