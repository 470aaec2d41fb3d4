package vision

import "fmt"

// InferenceError reports a detector failure on one window. A single
// failing window fails the whole request; results from windows that
// succeeded are never merged into a partial response.
type InferenceError struct {
	Window Window
	Err    error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed on window %s: %v", e.Window, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
