package handlerUtil

import (
	"SlideScope/internal/api/analysis"
	"SlideScope/internal/api/upload"
	"SlideScope/pkg/vision"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func newTestHandler() (*fiber.App, *ErrorHandler) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return fiber.New(), New(logger)
}

func TestHandleStatusMapping(t *testing.T) {
	app, h := newTestHandler()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"deadline exceeded", context.DeadlineExceeded, fiber.StatusRequestTimeout},
		{"client cancelled", context.Canceled, fiber.StatusRequestTimeout},
		{"wrapped cancellation", errors.Join(errors.New("analysis aborted"), context.Canceled), fiber.StatusRequestTimeout},
		{"unsupported format", upload.ErrUnsupportedFileFormat, fiber.StatusBadRequest},
		{"session not found", upload.ErrSessionNotFound, fiber.StatusNotFound},
		{"illegal transition", upload.ErrIllegalTransition, fiber.StatusConflict},
		{"decode failure", analysis.ErrImageDecode, fiber.StatusBadRequest},
		{"test image not found", analysis.ErrTestImageNotFound, fiber.StatusNotFound},
		{"record not found", analysis.ErrRecordNotFound, fiber.StatusNotFound},
		{"invalid pipeline config", &vision.ConfigError{Field: "overlap", Reason: "bad"}, fiber.StatusBadRequest},
		{"inference failure", &vision.InferenceError{Window: vision.Window{W: 640, H: 640}, Err: errors.New("boom")}, fiber.StatusInternalServerError},
		{"unknown error", errors.New("something else"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := app.AcquireCtx(&fasthttp.RequestCtx{})
			defer app.ReleaseCtx(c)

			if err := h.Handle(c, "req-1", tc.err, "/api/v1/analysis/analyze-s3", "test_op"); err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if got := c.Response().StatusCode(); got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
