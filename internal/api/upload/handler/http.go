package uploadHandler

import (
	uploadService "SlideScope/internal/api/upload/service"
	"SlideScope/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type UploadHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	uploadService uploadService.IUploadService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	us uploadService.IUploadService,
) *UploadHandler {
	return &UploadHandler{
		log:           log,
		validator:     validator,
		middleware:    middleware,
		uploadService: us,
	}
}

func (h *UploadHandler) Start(srv fiber.Router) {
	uploads := srv.Group("/upload")
	uploads.Post("/presigned-url", h.middleware.NewRateLimiter, h.GeneratePresignedURL)
	uploads.Get("/sessions/:id", h.GetSession)
	uploads.Patch("/sessions/:id", h.UpdateSession)
}
