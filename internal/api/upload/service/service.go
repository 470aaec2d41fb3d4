package uploadService

import (
	"SlideScope/internal/entity"
	"SlideScope/pkg/redis"
	"SlideScope/pkg/s3"
	"SlideScope/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IUploadService interface {
	CreatePresignedUpload(ctx context.Context, filename string, contentType string) (*entity.UploadSession, string, error)
	GetSession(ctx context.Context, sessionID string) (*entity.UploadSession, error)
	UpdateSession(ctx context.Context, sessionID string, state entity.UploadState, progress int, reason string) (*entity.UploadSession, error)
	MarkAnalyzing(ctx context.Context, sessionID string) error
	MarkDone(ctx context.Context, sessionID string) error
	MarkFailed(ctx context.Context, sessionID string, reason string) error
}

type uploadService struct {
	log      *logrus.Logger
	s3Client s3.ItfS3
	redis    redis.IRedis
	utils    utils.IUtils
}

func New(
	log *logrus.Logger,
	s3Client s3.ItfS3,
	redisServer redis.IRedis,
	utils utils.IUtils,
) IUploadService {
	return &uploadService{
		log:      log,
		s3Client: s3Client,
		redis:    redisServer,
		utils:    utils,
	}
}
