package uploadService

import (
	"SlideScope/internal/api/upload"
	"SlideScope/internal/entity"
	contextPkg "SlideScope/pkg/context"
	"SlideScope/pkg/log"
	"SlideScope/pkg/redis"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/context"
)

// Presigned URLs and their sessions share one lifetime; after that the
// upload location is gone and the session record with it.
const presignExpiry = time.Hour

func sessionKey(id string) string {
	return fmt.Sprintf("upload:session:%s", id)
}

func (s *uploadService) CreatePresignedUpload(ctx context.Context, filename string, contentType string) (*entity.UploadSession, string, error) {
	requestID := contextPkg.GetRequestID(ctx)

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.utils.AllowedSlideExtension(filename) {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"filename":   filename,
		}).Warn("Rejected presign request for unsupported file format")
		return nil, "", upload.ErrUnsupportedFileFormat
	}

	s3Key := fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)

	presignedURL, err := s.s3Client.PresignUpload(s3Key, contentType, presignExpiry)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"s3_key":     s3Key,
			"error":      err.Error(),
		}).Error("Failed to generate presigned upload URL")
		return nil, "", err
	}

	now := time.Now()
	session := &entity.UploadSession{
		ID:          uuid.New().String(),
		S3Key:       s3Key,
		Filename:    filename,
		ContentType: contentType,
		State:       entity.UploadStateRequestingLocation,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.redis.SetJSON(ctx, sessionKey(session.ID), session, presignExpiry); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("Failed to store upload session")
		return nil, "", err
	}

	s.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": session.ID,
		"s3_key":     s3Key,
	}).Info("Created presigned upload")

	return session, presignedURL, nil
}

func (s *uploadService) GetSession(ctx context.Context, sessionID string) (*entity.UploadSession, error) {
	var session entity.UploadSession
	err := s.redis.GetJSON(ctx, sessionKey(sessionID), &session)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, upload.ErrSessionNotFound
	} else if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *uploadService) UpdateSession(ctx context.Context, sessionID string, state entity.UploadState, progress int, reason string) (*entity.UploadSession, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if !state.Valid() {
		return nil, upload.ErrInvalidState
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.State.CanTransitionTo(state) {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"from":       session.State,
			"to":         state,
		}).Warn("Rejected illegal upload session transition")
		return nil, upload.ErrIllegalTransition
	}

	session.State = state
	session.Progress = progress
	session.Reason = reason
	session.UpdatedAt = time.Now()

	if err := s.redis.SetJSON(ctx, sessionKey(sessionID), session, presignExpiry); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *uploadService) MarkAnalyzing(ctx context.Context, sessionID string) error {
	_, err := s.UpdateSession(ctx, sessionID, entity.UploadStateAnalyzing, 100, "")
	return err
}

func (s *uploadService) MarkDone(ctx context.Context, sessionID string) error {
	_, err := s.UpdateSession(ctx, sessionID, entity.UploadStateDone, 100, "")
	return err
}

func (s *uploadService) MarkFailed(ctx context.Context, sessionID string, reason string) error {
	_, err := s.UpdateSession(ctx, sessionID, entity.UploadStateFailed, 0, reason)
	return err
}
