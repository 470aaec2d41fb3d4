package vision

// Method names the processing path taken for an image. The serialized
// values are part of the external result contract.
type Method string

const (
	MethodDirect        Method = "direct"
	MethodSlidingWindow Method = "sliding_window"
)

// Classify decides between direct single-pass detection and sliding
// window tiling, purely from the image dimensions and the configured
// window size. The choice is recorded verbatim in the result's
// processing info.
func Classify(width, height, windowSize int) Method {
	if width <= windowSize && height <= windowSize {
		return MethodDirect
	}
	return MethodSlidingWindow
}
