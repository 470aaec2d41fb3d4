package analysisHandler

import (
	analysisService "SlideScope/internal/api/analysis/service"
	"SlideScope/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type AnalysisHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	analysisService analysisService.IAnalysisService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	as analysisService.IAnalysisService,
) *AnalysisHandler {
	return &AnalysisHandler{
		log:             log,
		validator:       validator,
		middleware:      middleware,
		analysisService: as,
	}
}

func (h *AnalysisHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	analyses := srv.Group("/analysis")
	analyses.Post("/predict", h.middleware.NewRateLimiter, h.Predict)
	analyses.Post("/analyze-s3", h.middleware.NewRateLimiter, h.AnalyzeS3)
	analyses.Post("/analyze-test-image", h.AnalyzeTestImage)
	analyses.Get("/test-images", h.ListTestImages)
	analyses.Get("/test-images/:name", h.GetTestImage)
	analyses.Get("/history", h.GetHistory)
	analyses.Get("/history/:id", h.GetAnalysisRecord)

	analyses.Use("/ws", wsMiddleware)
	analyses.Get("/ws", websocket.New(h.handleWebSocket))
}
