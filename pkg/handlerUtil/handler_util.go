package handlerUtil

import (
	"SlideScope/internal/api/analysis"
	"SlideScope/internal/api/upload"
	"SlideScope/pkg/log"
	"SlideScope/pkg/response"
	"SlideScope/pkg/vision"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Upload domain errors
	if errors.Is(err, upload.ErrUnsupportedFileFormat) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Unsupported file format")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported file format. Allowed: .png, .jpg, .jpeg, .tiff, .tif",
			"code":  "UNSUPPORTED_FILE_FORMAT",
		})
	}

	if errors.Is(err, upload.ErrSessionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Upload session not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Upload session not found or expired",
			"code":  "SESSION_NOT_FOUND",
		})
	}

	if errors.Is(err, upload.ErrIllegalTransition) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Illegal upload session transition")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Requested state transition is not allowed",
			"code":  "ILLEGAL_TRANSITION",
		})
	}

	if errors.Is(err, upload.ErrInvalidState) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid upload session state")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown upload session state",
			"code":  "INVALID_STATE",
		})
	}

	// Analysis domain errors
	if errors.Is(err, analysis.ErrImageDecode) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid image payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid or corrupted image file",
			"code":  "IMAGE_DECODE_ERROR",
		})
	}

	if errors.Is(err, analysis.ErrTestImageNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Test image not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Test image not found",
			"code":  "TEST_IMAGE_NOT_FOUND",
		})
	}

	if errors.Is(err, analysis.ErrInvalidTestImage) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid test image name")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test image name",
			"code":  "INVALID_TEST_IMAGE",
		})
	}

	if errors.Is(err, analysis.ErrRecordNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Analysis record not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Analysis record not found",
			"code":  "ANALYSIS_RECORD_NOT_FOUND",
		})
	}

	// Pipeline errors
	var cfgErr *vision.ConfigError
	if errors.As(err, &cfgErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"field":      cfgErr.Field,
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid pipeline configuration")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_PIPELINE_CONFIG",
		})
	}

	var infErr *vision.InferenceError
	if errors.As(err, &infErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"window":     infErr.Window.String(),
			"path":       path,
			"operation":  operation,
		}).Error("Detector inference failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Detection inference failed",
			"code":  "INFERENCE_ERROR",
		})
	}

	// Deadline and cancellation both mean the request is over without
	// a result; a client disconnect mid-analysis lands here too.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Analysis timed out or was cancelled")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Analysis timed out",
			"code":  "ANALYSIS_TIMEOUT",
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
