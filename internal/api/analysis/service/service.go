package analysisService

import (
	"SlideScope/internal/api/analysis"
	analysisRepository "SlideScope/internal/api/analysis/repository"
	"SlideScope/internal/entity"
	uploadService "SlideScope/internal/api/upload/service"
	"SlideScope/pkg/redis"
	"SlideScope/pkg/s3"
	"SlideScope/pkg/utils"
	"SlideScope/pkg/vision"
	"mime/multipart"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IAnalysisService interface {
	AnalyzeS3Object(ctx context.Context, req analysis.AnalyzeS3Request) (vision.Result, error)
	AnalyzeUpload(ctx context.Context, fileHeader *multipart.FileHeader, overrides analysis.PipelineOverrides) (vision.Result, error)
	AnalyzeTestImage(ctx context.Context, req analysis.AnalyzeTestImageRequest) (vision.Result, error)
	AnalyzeFrame(ctx context.Context, data []byte) (vision.Result, error)
	ListTestImages(ctx context.Context) ([]analysis.TestImage, error)
	TestImageFile(ctx context.Context, name string) (string, error)
	GetHistory(ctx context.Context, limit int) (analysis.HistoryResponse, error)
	GetAnalysisRecord(ctx context.Context, id string) (entity.AnalysisRecord, error)
}

type analysisService struct {
	log      *logrus.Logger
	repo     analysisRepository.Repository
	s3Client s3.ItfS3
	redis    redis.IRedis
	uploads  uploadService.IUploadService
	detector vision.Detector
	pipeline *vision.Pipeline
	utils    utils.IUtils
	defaults vision.Config
}

func New(
	log *logrus.Logger,
	repo analysisRepository.Repository,
	s3Client s3.ItfS3,
	redisServer redis.IRedis,
	uploads uploadService.IUploadService,
	detector vision.Detector,
	utils utils.IUtils,
	defaults vision.Config,
) IAnalysisService {
	return &analysisService{
		log:      log,
		repo:     repo,
		s3Client: s3Client,
		redis:    redisServer,
		uploads:  uploads,
		detector: detector,
		pipeline: vision.NewPipeline(log),
		utils:    utils,
		defaults: defaults,
	}
}
