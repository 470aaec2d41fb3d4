package vision

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Detector is the fixed-input-window inference contract the pipeline
// consumes. Infer receives one window's pixels and returns zero or more
// detections in window-local coordinates. Implementations wrapping a
// single shared model instance must serialize concurrent calls
// themselves; the pipeline dispatches windows in parallel.
type Detector interface {
	Infer(ctx context.Context, window image.Image) ([]Detection, error)
}

// Pipeline runs the tiling / inference / remap / merge sequence. It is
// stateless and re-entrant; every invocation carries its own Config.
type Pipeline struct {
	log *logrus.Logger
}

func NewPipeline(log *logrus.Logger) *Pipeline {
	return &Pipeline{log: log}
}

// Run executes one full detection request over img. The request fails
// atomically: a detector error on any window, or a cancelled or timed
// out context, yields no partial result. Cancellation is reported as
// the context error so callers can distinguish it from inference
// failure.
func (p *Pipeline) Run(ctx context.Context, img image.Image, detector Detector, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	method := Classify(width, height, cfg.WindowSize)
	windows, err := TileWindows(width, height, cfg.WindowSize, cfg.Overlap)
	if err != nil {
		return Result{}, err
	}

	p.log.WithFields(logrus.Fields{
		"method":      method,
		"width":       width,
		"height":      height,
		"window_size": cfg.WindowSize,
		"overlap":     cfg.Overlap,
		"windows":     len(windows),
	}).Debug("Dispatching detection windows")

	perWindow := make([][]Detection, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, win := range windows {
		i, win := i, win
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			crop := imaging.Crop(img, image.Rect(
				bounds.Min.X+win.X,
				bounds.Min.Y+win.Y,
				bounds.Min.X+win.X+win.W,
				bounds.Min.Y+win.Y+win.H,
			))

			local, err := detector.Infer(gctx, crop)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return &InferenceError{Window: win, Err: err}
			}

			perWindow[i] = p.remapWindow(local, win, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var global []Detection
	for _, dets := range perWindow {
		global = append(global, dets...)
	}

	// The merger runs on the direct path too: a single window cannot
	// produce cross-tile duplicates, but the IoU threshold is the only
	// arbiter of what gets merged, not the tiling mode.
	merged := Merge(global, cfg.IoUThreshold)

	p.log.WithFields(logrus.Fields{
		"method":     method,
		"raw":        len(global),
		"merged":     len(merged),
		"suppressed": len(global) - len(merged),
	}).Debug("Cross-tile merge complete")

	return Assemble(width, height, merged, method, cfg), nil
}

// remapWindow drops malformed and sub-floor detections from one
// window's output and translates the remainder to global coordinates.
// Malformed detections are a local recovery, never request-fatal.
func (p *Pipeline) remapWindow(local []Detection, win Window, cfg Config) []Detection {
	out := make([]Detection, 0, len(local))
	for _, d := range local {
		if !d.WellFormed() {
			p.log.WithFields(logrus.Fields{
				"window":     win.String(),
				"bbox":       d.BBox,
				"confidence": d.Confidence,
			}).Debug("Dropping malformed detection")
			continue
		}
		if d.Confidence < cfg.ConfidenceFloor {
			continue
		}
		out = append(out, Remap(d, win))
	}
	return out
}
