package vision

// TileWindows computes a covering set of fixed-size, possibly
// overlapping windows spanning the full width x height extent. The
// stride along each axis is windowSize - overlap; whenever the next
// regular origin would place a window partially outside the image, the
// origin is pulled back so that origin + windowSize equals the image
// dimension. The last row/column may therefore overlap its predecessor
// by more than the configured overlap near the boundary; coverage is
// exact and no window extends out of bounds. Padding is never used.
//
// For an image no larger than the window on both axes the result is a
// single window equal to the full image.
func TileWindows(width, height, windowSize, overlap int) ([]Window, error) {
	if windowSize <= 0 {
		return nil, &ConfigError{Field: "window_size", Reason: "must be positive"}
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, &ConfigError{Field: "overlap", Reason: "must satisfy 0 <= overlap < window_size"}
	}
	if width < 1 || height < 1 {
		return nil, &ConfigError{Field: "image", Reason: "dimensions must be at least 1x1"}
	}

	if width <= windowSize && height <= windowSize {
		return []Window{{X: 0, Y: 0, W: width, H: height}}, nil
	}

	stride := windowSize - overlap
	winW := min(windowSize, width)
	winH := min(windowSize, height)

	xs := axisOrigins(width, winW, stride)
	ys := axisOrigins(height, winH, stride)

	windows := make([]Window, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			windows = append(windows, Window{X: x, Y: y, W: winW, H: winH})
		}
	}
	return windows, nil
}

// axisOrigins walks origins 0, stride, 2*stride, ... and clamps the
// final origin back to length - window so the last window ends exactly
// at the image edge.
func axisOrigins(length, window, stride int) []int {
	if length <= window {
		return []int{0}
	}

	var origins []int
	for pos := 0; ; pos += stride {
		if pos+window >= length {
			origins = append(origins, length-window)
			return origins
		}
		origins = append(origins, pos)
	}
}
