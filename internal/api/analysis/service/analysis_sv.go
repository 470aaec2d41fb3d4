package analysisService

import (
	"SlideScope/internal/api/analysis"
	"SlideScope/internal/entity"
	contextPkg "SlideScope/pkg/context"
	"SlideScope/pkg/imagery"
	"SlideScope/pkg/log"
	"SlideScope/pkg/redis"
	"SlideScope/pkg/vision"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/context"
)

const resultCacheTTL = time.Hour

func resultCacheKey(imageDigest [sha256.Size]byte, cfg vision.Config) string {
	return fmt.Sprintf("analysis:result:%x:%d:%d:%.3f:%.3f",
		imageDigest, cfg.WindowSize, cfg.Overlap, cfg.IoUThreshold, cfg.ConfidenceFloor)
}

// effectiveConfig layers per-request overrides over the server defaults.
func (s *analysisService) effectiveConfig(overrides analysis.PipelineOverrides) vision.Config {
	cfg := s.defaults
	if overrides.WindowSize != nil {
		cfg.WindowSize = *overrides.WindowSize
	}
	if overrides.Overlap != nil {
		cfg.Overlap = *overrides.Overlap
	}
	if overrides.IoUThreshold != nil {
		cfg.IoUThreshold = *overrides.IoUThreshold
	}
	if overrides.ConfidenceFloor != nil {
		cfg.ConfidenceFloor = *overrides.ConfidenceFloor
	}
	return cfg
}

// analyze is the shared core behind every entry point: decode, run the
// pipeline, stamp provenance, persist and cache. Persistence and
// caching are best effort; a storage hiccup never fails a request that
// already produced detections.
func (s *analysisService) analyze(ctx context.Context, data []byte, source, sourceKey string, cfg vision.Config) (vision.Result, error) {
	requestID := contextPkg.GetRequestID(ctx)

	digest := sha256.Sum256(data)
	cacheKey := resultCacheKey(digest, cfg)

	var cached vision.Result
	if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"source":     source,
		}).Debug("Serving analysis result from cache")
		cached.ProcessingInfo.Source = source
		return cached, nil
	} else if !errors.Is(err, redis.ErrNotFound) {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Result cache lookup failed, running pipeline")
	}

	img, format, err := imagery.Decode(data)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"source":     source,
			"error":      err.Error(),
		}).Warn("Failed to decode image payload")
		return vision.Result{}, analysis.ErrImageDecode
	}

	started := time.Now()
	result, err := s.pipeline.Run(ctx, img, s.detector, cfg)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"source":     source,
			"error":      err.Error(),
		}).Error("Detection pipeline failed")
		return vision.Result{}, err
	}
	duration := time.Since(started)

	result.ProcessingInfo.OriginalFormat = strings.ToUpper(format)
	result.ProcessingInfo.Source = source

	s.persistResult(ctx, result, source, sourceKey, duration)

	if err := s.redis.SetJSON(ctx, cacheKey, result, resultCacheTTL); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to cache analysis result")
	}

	return result, nil
}

func (s *analysisService) persistResult(ctx context.Context, result vision.Result, source, sourceKey string, duration time.Duration) {
	requestID := contextPkg.GetRequestID(ctx)

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to generate analysis record ID, skipping history entry")
		return
	}

	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to open repository client, skipping history entry")
		return
	}

	record := entity.AnalysisRecord{
		ID:              id,
		Source:          source,
		SourceKey:       sourceKey,
		ImageWidth:      result.ImageWidth,
		ImageHeight:     result.ImageHeight,
		Method:          string(result.ProcessingInfo.Method),
		WindowSize:      result.ProcessingInfo.WindowSize,
		OriginalFormat:  result.ProcessingInfo.OriginalFormat,
		TotalDetections: result.TotalDetections,
		DurationMs:      duration.Milliseconds(),
	}

	if err := repoClient.Analysis.CreateAnalysis(ctx, record); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to persist analysis record")
	}
}

func (s *analysisService) AnalyzeS3Object(ctx context.Context, req analysis.AnalyzeS3Request) (vision.Result, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.SessionID != "" {
		if err := s.uploads.MarkAnalyzing(ctx, req.SessionID); err != nil {
			s.log.WithFields(log.Fields{
				"request_id": requestID,
				"session_id": req.SessionID,
				"error":      err.Error(),
			}).Warn("Failed to mark upload session as analyzing")
		}
	}

	data, err := s.s3Client.Download(req.S3Key)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"s3_key":     req.S3Key,
			"error":      err.Error(),
		}).Error("Failed to download object for analysis")
		s.failSession(ctx, req.SessionID, "object download failed")
		return vision.Result{}, err
	}

	result, err := s.analyze(ctx, data, "s3", req.S3Key, s.effectiveConfig(req.PipelineOverrides))
	if err != nil {
		s.failSession(ctx, req.SessionID, "analysis failed")
		return vision.Result{}, err
	}

	// The object was staged only for this analysis; clean it up but do
	// not let a delete failure spoil an already successful result.
	if err := s.s3Client.DeleteFile(req.S3Key); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"s3_key":     req.S3Key,
			"error":      err.Error(),
		}).Warn("Failed to delete analyzed object")
	}

	if req.SessionID != "" {
		if err := s.uploads.MarkDone(ctx, req.SessionID); err != nil {
			s.log.WithFields(log.Fields{
				"request_id": requestID,
				"session_id": req.SessionID,
				"error":      err.Error(),
			}).Warn("Failed to mark upload session as done")
		}
	}

	return result, nil
}

func (s *analysisService) failSession(ctx context.Context, sessionID, reason string) {
	if sessionID == "" {
		return
	}
	if err := s.uploads.MarkFailed(ctx, sessionID, reason); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to mark upload session as failed")
	}
}

func (s *analysisService) AnalyzeUpload(ctx context.Context, fileHeader *multipart.FileHeader, overrides analysis.PipelineOverrides) (vision.Result, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := s.utils.ValidateSlideFile(fileHeader); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"filename":   fileHeader.Filename,
			"error":      err.Error(),
		}).Warn("Rejected uploaded file")
		return vision.Result{}, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to open uploaded file")
		return vision.Result{}, err
	}
	defer file.Close()

	data, err := s.utils.ReadFileBytes(file)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to read uploaded file")
		return vision.Result{}, err
	}

	return s.analyze(ctx, data, "upload", fileHeader.Filename, s.effectiveConfig(overrides))
}

func (s *analysisService) AnalyzeTestImage(ctx context.Context, req analysis.AnalyzeTestImageRequest) (vision.Result, error) {
	requestID := contextPkg.GetRequestID(ctx)

	path, err := s.testImagePath(req.TestImageName)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"test_image": req.TestImageName,
			"error":      err.Error(),
		}).Warn("Rejected test image request")
		return vision.Result{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return vision.Result{}, analysis.ErrTestImageNotFound
		}
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"test_image": req.TestImageName,
			"error":      err.Error(),
		}).Error("Failed to read test image")
		return vision.Result{}, err
	}

	return s.analyze(ctx, data, "test_image", req.TestImageName, s.effectiveConfig(req.PipelineOverrides))
}

// AnalyzeFrame runs the pipeline over a single streamed frame. Frames
// are ephemeral, so results are neither cached nor persisted.
func (s *analysisService) AnalyzeFrame(ctx context.Context, data []byte) (vision.Result, error) {
	img, format, err := imagery.Decode(data)
	if err != nil {
		return vision.Result{}, analysis.ErrImageDecode
	}

	result, err := s.pipeline.Run(ctx, img, s.detector, s.defaults)
	if err != nil {
		return vision.Result{}, err
	}

	result.ProcessingInfo.OriginalFormat = strings.ToUpper(format)
	result.ProcessingInfo.Source = "stream"
	return result, nil
}

func testImageDir() string {
	if dir := os.Getenv("TEST_IMAGE_DIR"); dir != "" {
		return dir
	}
	return "test_images"
}

// testImagePath resolves a test image name against the configured
// directory, refusing names that reach outside of it.
func (s *analysisService) testImagePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", analysis.ErrInvalidTestImage
	}
	if !s.utils.AllowedSlideExtension(name) {
		return "", analysis.ErrInvalidTestImage
	}
	return filepath.Join(testImageDir(), name), nil
}

// TestImageFile resolves a listed sample slide to its on-disk path for
// serving. Names that fail the allowlist or do not exist read as not
// found; nothing outside the test image directory is ever served.
func (s *analysisService) TestImageFile(ctx context.Context, name string) (string, error) {
	requestID := contextPkg.GetRequestID(ctx)

	path, err := s.testImagePath(name)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"test_image": name,
		}).Warn("Rejected test image file request")
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", analysis.ErrTestImageNotFound
		}
		return "", err
	}

	return path, nil
}

func (s *analysisService) ListTestImages(ctx context.Context) ([]analysis.TestImage, error) {
	requestID := contextPkg.GetRequestID(ctx)

	entries, err := os.ReadDir(testImageDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []analysis.TestImage{}, nil
		}
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to list test images")
		return nil, err
	}

	images := make([]analysis.TestImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !s.utils.AllowedSlideExtension(entry.Name()) {
			continue
		}
		name := entry.Name()
		base := strings.TrimSuffix(name, filepath.Ext(name))
		images = append(images, analysis.TestImage{
			Name:        name,
			DisplayName: displayName(base),
			Description: fmt.Sprintf("Sample slide %s", base),
			URL:         fmt.Sprintf("/analysis/test-images/%s", name),
		})
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

func (s *analysisService) GetAnalysisRecord(ctx context.Context, id string) (entity.AnalysisRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to open repository client")
		return entity.AnalysisRecord{}, err
	}

	record, err := repoClient.Analysis.GetAnalysisByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.AnalysisRecord{}, analysis.ErrRecordNotFound
		}
		return entity.AnalysisRecord{}, err
	}

	return record, nil
}

func displayName(base string) string {
	words := strings.Fields(strings.ReplaceAll(base, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (s *analysisService) GetHistory(ctx context.Context, limit int) (analysis.HistoryResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to open repository client")
		return analysis.HistoryResponse{}, err
	}

	records, err := repoClient.Analysis.GetRecentAnalyses(ctx, limit)
	if err != nil {
		return analysis.HistoryResponse{}, err
	}

	return analysis.HistoryResponse{Data: records}, nil
}
