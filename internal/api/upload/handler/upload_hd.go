package uploadHandler

import (
	"SlideScope/internal/api/upload"
	contextPkg "SlideScope/pkg/context"
	"SlideScope/pkg/handlerUtil"
	"SlideScope/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *UploadHandler) GeneratePresignedURL(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing presigned upload request")

	var req upload.PresignedUploadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	session, presignedURL, err := h.uploadService.CreatePresignedUpload(c, req.Filename, req.ContentType)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_presigned_upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"s3_key":     session.S3Key,
		}).Info("Presigned upload URL issued")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, upload.PresignedUploadResponse{
			PresignedURL: presignedURL,
			S3Key:        session.S3Key,
			SessionID:    session.ID,
			ExpiresIn:    3600,
		})
	}
}

func (h *UploadHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	session, err := h.uploadService.GetSession(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_upload_session")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, upload.SessionResponse{Data: *session})
}

func (h *UploadHandler) UpdateSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req upload.SessionUpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	session, err := h.uploadService.UpdateSession(c, ctx.Params("id"), req.State, req.Progress, req.Reason)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "update_upload_session")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": session.ID,
		"state":      session.State,
		"progress":   session.Progress,
	}).Debug("Upload session updated")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, upload.SessionResponse{Data: *session})
}
