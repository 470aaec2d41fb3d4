package vision

// Remap translates a window-local detection into global image
// coordinates by offsetting the bbox with the window origin. Pure
// function; the direct path (window origin 0,0) is a no-op.
func Remap(d Detection, w Window) Detection {
	d.BBox[0] += float64(w.X)
	d.BBox[1] += float64(w.Y)
	d.BBox[2] += float64(w.X)
	d.BBox[3] += float64(w.Y)
	return d
}
