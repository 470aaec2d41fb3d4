package config

import (
	"SlideScope/database/postgres"
	analysisHandler "SlideScope/internal/api/analysis/handler"
	analysisRepository "SlideScope/internal/api/analysis/repository"
	analysisService "SlideScope/internal/api/analysis/service"
	uploadHandler "SlideScope/internal/api/upload/handler"
	uploadService "SlideScope/internal/api/upload/service"
	"SlideScope/internal/middleware"
	"SlideScope/pkg/redis"
	"SlideScope/pkg/s3"
	"SlideScope/pkg/utils"
	"SlideScope/pkg/vision"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	redisServer    redis.IRedis
	s3Client       s3.ItfS3
	detector       vision.Detector
	pipelineConfig vision.Config
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithDetector(detector vision.Detector) ServerOption {
	return func(s *Server) error {
		s.detector = detector
		return nil
	}
}

func WithPipelineConfig(cfg vision.Config) ServerOption {
	return func(s *Server) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid pipeline configuration: %w", err)
		}
		s.pipelineConfig = cfg
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Upload Domain
	uploadServices := uploadService.New(s.log, s.s3Client, s.redisServer, s.utils)
	uploadHandlers := uploadHandler.New(s.log, s.validator, s.middleware, uploadServices)

	// Analysis Domain
	analysisRepo := analysisRepository.New(s.db, s.log)
	analysisServices := analysisService.New(s.log, analysisRepo, s.s3Client, s.redisServer, uploadServices, s.detector, s.utils, s.pipelineConfig)
	analysisHandlers := analysisHandler.New(s.log, s.validator, s.middleware, analysisServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, uploadHandlers, analysisHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
