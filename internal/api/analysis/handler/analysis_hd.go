package analysisHandler

import (
	"SlideScope/internal/api/analysis"
	contextPkg "SlideScope/pkg/context"
	"SlideScope/pkg/handlerUtil"
	"SlideScope/pkg/log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

// Inference over a large slide can take a while; the analysis deadline
// bounds the whole tiling and detection sequence, not a single call.
const defaultAnalysisTimeout = 120 * time.Second

func analysisTimeout() time.Duration {
	if raw := os.Getenv("ANALYSIS_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultAnalysisTimeout
}

func (h *AnalysisHandler) Predict(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), analysisTimeout())
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing direct prediction request")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, analysis.ErrBadRequest, ctx.Path(), "parse_multipart_file")
	}

	var overrides analysis.PipelineOverrides
	if err := ctx.QueryParser(&overrides); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_query_params")
	}

	if err := h.validator.Struct(overrides); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.analysisService.AnalyzeUpload(c, fileHeader, overrides)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"filename":   fileHeader.Filename,
			"detections": result.TotalDetections,
			"method":     result.ProcessingInfo.Method,
		}).Info("Prediction complete")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, analysis.AnalysisResponse{Result: result})
	}
}

func (h *AnalysisHandler) AnalyzeS3(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), analysisTimeout())
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req analysis.AnalyzeS3Request
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"s3_key":     req.S3Key,
		"session_id": req.SessionID,
	}).Debug("Processing S3 object analysis request")

	result, err := h.analysisService.AnalyzeS3Object(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_s3_object")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"s3_key":     req.S3Key,
			"detections": result.TotalDetections,
			"method":     result.ProcessingInfo.Method,
		}).Info("S3 object analysis complete")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, analysis.AnalysisResponse{Result: result})
	}
}

func (h *AnalysisHandler) AnalyzeTestImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), analysisTimeout())
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req analysis.AnalyzeTestImageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.analysisService.AnalyzeTestImage(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_test_image")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, analysis.AnalysisResponse{Result: result})
	}
}

func (h *AnalysisHandler) ListTestImages(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	images, err := h.analysisService.ListTestImages(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_test_images")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, analysis.TestImagesResponse{TestImages: images})
}

func (h *AnalysisHandler) GetTestImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	path, err := h.analysisService.TestImageFile(c, ctx.Params("name"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "serve_test_image")
	}

	return ctx.SendFile(path)
}

func (h *AnalysisHandler) GetHistory(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	history, err := h.analysisService.GetHistory(c, ctx.QueryInt("limit"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_analysis_history")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, history)
}

func (h *AnalysisHandler) GetAnalysisRecord(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	record, err := h.analysisService.GetAnalysisRecord(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_analysis_record")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, analysis.AnalysisRecordResponse{Data: record})
}

func (h *AnalysisHandler) handleWebSocket(c *websocket.Conn) {
	h.log.Info("Analysis WebSocket client connected")
	defer h.log.Info("Analysis WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Analysis WebSocket error: %v", err)
			} else {
				h.log.Info("Analysis WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		frameCtx, cancel := context.WithTimeout(context.Background(), analysisTimeout())
		result, err := h.analysisService.AnalyzeFrame(frameCtx, message)
		cancel()
		if err != nil {
			if writeErr := c.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
				h.log.Errorf("Error sending error response: %v", writeErr)
				break
			}
			continue
		}

		if err := c.WriteJSON(result); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}
