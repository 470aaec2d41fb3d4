package analysisService

import (
	"SlideScope/internal/api/analysis"
	analysisRepository "SlideScope/internal/api/analysis/repository"
	"SlideScope/internal/entity"
	"SlideScope/pkg/redis"
	"SlideScope/pkg/utils"
	"SlideScope/pkg/vision"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type memoryRedis struct {
	store map[string][]byte
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{store: make(map[string][]byte)}
}

func (m *memoryRedis) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = data
	return nil
}

func (m *memoryRedis) GetJSON(_ context.Context, key string, dest interface{}) error {
	data, ok := m.store[key]
	if !ok {
		return redis.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryRedis) Delete(_ context.Context, key string) error {
	delete(m.store, key)
	return nil
}

type fakeS3 struct {
	objects map[string][]byte
	deleted []string
}

func (f *fakeS3) PresignUpload(key string, _ string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key, nil
}

func (f *fakeS3) Download(key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeS3) DeleteFile(key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingRepo struct {
	records []entity.AnalysisRecord
}

func (r *recordingRepo) NewClient(bool) (analysisRepository.Client, error) {
	return analysisRepository.Client{
		Analysis: r,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

func (r *recordingRepo) CreateAnalysis(_ context.Context, record entity.AnalysisRecord) error {
	r.records = append(r.records, record)
	return nil
}

func (r *recordingRepo) GetAnalysisByID(_ context.Context, id string) (entity.AnalysisRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return entity.AnalysisRecord{}, sql.ErrNoRows
}

func (r *recordingRepo) GetRecentAnalyses(_ context.Context, limit int) ([]entity.AnalysisRecord, error) {
	if len(r.records) < limit {
		limit = len(r.records)
	}
	return r.records[:limit], nil
}

type stubUploads struct {
	transitions []string
}

func (s *stubUploads) CreatePresignedUpload(context.Context, string, string) (*entity.UploadSession, string, error) {
	return nil, "", errors.New("not implemented")
}

func (s *stubUploads) GetSession(context.Context, string) (*entity.UploadSession, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUploads) UpdateSession(context.Context, string, entity.UploadState, int, string) (*entity.UploadSession, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUploads) MarkAnalyzing(_ context.Context, _ string) error {
	s.transitions = append(s.transitions, "analyzing")
	return nil
}

func (s *stubUploads) MarkDone(_ context.Context, _ string) error {
	s.transitions = append(s.transitions, "done")
	return nil
}

func (s *stubUploads) MarkFailed(_ context.Context, _ string, _ string) error {
	s.transitions = append(s.transitions, "failed")
	return nil
}

type countingDetector struct {
	calls      atomic.Int64
	detections []vision.Detection
}

func (d *countingDetector) Infer(_ context.Context, _ image.Image) ([]vision.Detection, error) {
	d.calls.Add(1)
	return d.detections, nil
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	svc      IAnalysisService
	s3       *fakeS3
	repo     *recordingRepo
	uploads  *stubUploads
	detector *countingDetector
}

func newFixture(detections []vision.Detection) *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		s3:       &fakeS3{objects: make(map[string][]byte)},
		repo:     &recordingRepo{},
		uploads:  &stubUploads{},
		detector: &countingDetector{detections: detections},
	}

	defaults := vision.Config{
		WindowSize:      640,
		Overlap:         64,
		IoUThreshold:    0.5,
		ConfidenceFloor: 0.25,
		MaxConcurrency:  2,
	}

	f.svc = New(logger, f.repo, f.s3, newMemoryRedis(), f.uploads, f.detector, utils.New(), defaults)
	return f
}

func TestAnalyzeS3Object(t *testing.T) {
	f := newFixture([]vision.Detection{
		{BBox: [4]float64{10, 10, 60, 60}, Confidence: 0.9, ClassID: 1, ClassName: "mitosis"},
	})
	f.s3.objects["uploads/slide.png"] = encodePNG(t, 320, 240)

	result, err := f.svc.AnalyzeS3Object(context.Background(), analysis.AnalyzeS3Request{
		S3Key:     "uploads/slide.png",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("AnalyzeS3Object: %v", err)
	}

	if result.ProcessingInfo.Method != vision.MethodDirect {
		t.Errorf("method = %s, want %s", result.ProcessingInfo.Method, vision.MethodDirect)
	}
	if result.ProcessingInfo.Source != "s3" {
		t.Errorf("source = %q, want %q", result.ProcessingInfo.Source, "s3")
	}
	if result.ProcessingInfo.OriginalFormat != "PNG" {
		t.Errorf("original format = %q, want PNG", result.ProcessingInfo.OriginalFormat)
	}
	if result.TotalDetections != 1 {
		t.Errorf("total detections = %d, want 1", result.TotalDetections)
	}

	if len(f.s3.deleted) != 1 || f.s3.deleted[0] != "uploads/slide.png" {
		t.Errorf("expected analyzed object to be deleted, got %v", f.s3.deleted)
	}

	want := []string{"analyzing", "done"}
	if len(f.uploads.transitions) != len(want) {
		t.Fatalf("session transitions = %v, want %v", f.uploads.transitions, want)
	}
	for i := range want {
		if f.uploads.transitions[i] != want[i] {
			t.Fatalf("session transitions = %v, want %v", f.uploads.transitions, want)
		}
	}

	if len(f.repo.records) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(f.repo.records))
	}
	record := f.repo.records[0]
	if record.Source != "s3" || record.SourceKey != "uploads/slide.png" {
		t.Errorf("record provenance = %s/%s", record.Source, record.SourceKey)
	}
	if record.TotalDetections != 1 {
		t.Errorf("record detections = %d, want 1", record.TotalDetections)
	}
}

func TestAnalyzeS3ObjectDecodeFailure(t *testing.T) {
	f := newFixture(nil)
	f.s3.objects["uploads/broken.png"] = []byte("definitely not a png")

	_, err := f.svc.AnalyzeS3Object(context.Background(), analysis.AnalyzeS3Request{
		S3Key:     "uploads/broken.png",
		SessionID: "sess-2",
	})
	if !errors.Is(err, analysis.ErrImageDecode) {
		t.Fatalf("err = %v, want ErrImageDecode", err)
	}

	last := f.uploads.transitions[len(f.uploads.transitions)-1]
	if last != "failed" {
		t.Errorf("final session transition = %q, want failed", last)
	}
	if len(f.s3.deleted) != 0 {
		t.Errorf("failed analysis should not delete the object, got %v", f.s3.deleted)
	}
}

func TestAnalyzeS3ObjectServesCachedResult(t *testing.T) {
	f := newFixture([]vision.Detection{
		{BBox: [4]float64{5, 5, 25, 25}, Confidence: 0.8, ClassID: 0, ClassName: "cell"},
	})
	f.s3.objects["uploads/slide.png"] = encodePNG(t, 160, 120)

	req := analysis.AnalyzeS3Request{S3Key: "uploads/slide.png"}

	if _, err := f.svc.AnalyzeS3Object(context.Background(), req); err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	callsAfterFirst := f.detector.calls.Load()

	result, err := f.svc.AnalyzeS3Object(context.Background(), req)
	if err != nil {
		t.Fatalf("second analysis: %v", err)
	}

	if f.detector.calls.Load() != callsAfterFirst {
		t.Errorf("cached result should not re-run the detector")
	}
	if result.TotalDetections != 1 {
		t.Errorf("cached detections = %d, want 1", result.TotalDetections)
	}
}

func TestAnalyzeFrameSkipsPersistence(t *testing.T) {
	f := newFixture([]vision.Detection{
		{BBox: [4]float64{0, 0, 10, 10}, Confidence: 0.7, ClassID: 0, ClassName: "cell"},
	})

	result, err := f.svc.AnalyzeFrame(context.Background(), encodePNG(t, 64, 64))
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}

	if result.ProcessingInfo.Source != "stream" {
		t.Errorf("source = %q, want stream", result.ProcessingInfo.Source)
	}
	if len(f.repo.records) != 0 {
		t.Errorf("frames must not be persisted, got %d records", len(f.repo.records))
	}
}

func TestEffectiveConfigOverrides(t *testing.T) {
	f := newFixture(nil)
	f.s3.objects["uploads/slide.png"] = encodePNG(t, 200, 200)

	windowSize := 128
	iouThreshold := 0.35
	result, err := f.svc.AnalyzeS3Object(context.Background(), analysis.AnalyzeS3Request{
		S3Key: "uploads/slide.png",
		PipelineOverrides: analysis.PipelineOverrides{
			WindowSize:   &windowSize,
			IoUThreshold: &iouThreshold,
		},
	})
	if err != nil {
		t.Fatalf("AnalyzeS3Object: %v", err)
	}

	if result.ProcessingInfo.Method != vision.MethodSlidingWindow {
		t.Errorf("method = %s, want %s", result.ProcessingInfo.Method, vision.MethodSlidingWindow)
	}
	if result.ProcessingInfo.WindowSize != "128x128" {
		t.Errorf("window size = %q, want 128x128", result.ProcessingInfo.WindowSize)
	}
	if result.ProcessingInfo.IoUThreshold != 0.35 {
		t.Errorf("iou_threshold = %v, want the overridden 0.35", result.ProcessingInfo.IoUThreshold)
	}
	if result.ProcessingInfo.Overlap != 64 {
		t.Errorf("overlap = %d, want the default 64", result.ProcessingInfo.Overlap)
	}
}

func TestTestImageFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_IMAGE_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, "007.jpg"), encodePNG(t, 16, 16), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	f := newFixture(nil)

	path, err := f.svc.TestImageFile(context.Background(), "007.jpg")
	if err != nil {
		t.Fatalf("TestImageFile: %v", err)
	}
	if path != filepath.Join(dir, "007.jpg") {
		t.Errorf("path = %q, want it under %q", path, dir)
	}

	if _, err := f.svc.TestImageFile(context.Background(), "missing.jpg"); !errors.Is(err, analysis.ErrTestImageNotFound) {
		t.Errorf("missing file err = %v, want ErrTestImageNotFound", err)
	}

	for _, name := range []string{"../007.jpg", "a/../../007.jpg", ".hidden.jpg", "notes.txt", ""} {
		if _, err := f.svc.TestImageFile(context.Background(), name); !errors.Is(err, analysis.ErrInvalidTestImage) {
			t.Errorf("TestImageFile(%q) err = %v, want ErrInvalidTestImage", name, err)
		}
	}
}

func TestListTestImagesLinksServedRoute(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_IMAGE_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, "024.jpg"), encodePNG(t, 16, 16), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	f := newFixture(nil)

	images, err := f.svc.ListTestImages(context.Background())
	if err != nil {
		t.Fatalf("ListTestImages: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected one image, got %d", len(images))
	}

	// The listed URL must resolve through the serving endpoint.
	if images[0].URL != "/analysis/test-images/024.jpg" {
		t.Errorf("url = %q, want /analysis/test-images/024.jpg", images[0].URL)
	}
	if _, err := f.svc.TestImageFile(context.Background(), images[0].Name); err != nil {
		t.Errorf("listed image %q must be servable: %v", images[0].Name, err)
	}
}

func TestGetHistory(t *testing.T) {
	f := newFixture(nil)
	f.repo.records = []entity.AnalysisRecord{
		{ID: "01A", Source: "upload"},
		{ID: "01B", Source: "s3"},
	}

	history, err := f.svc.GetHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history.Data) != 2 {
		t.Errorf("history length = %d, want 2", len(history.Data))
	}
}

func TestGetAnalysisRecord(t *testing.T) {
	f := newFixture(nil)
	f.repo.records = []entity.AnalysisRecord{
		{ID: "01A", Source: "s3", SourceKey: "uploads/slide.png", TotalDetections: 3},
	}

	record, err := f.svc.GetAnalysisRecord(context.Background(), "01A")
	if err != nil {
		t.Fatalf("GetAnalysisRecord: %v", err)
	}
	if record.SourceKey != "uploads/slide.png" || record.TotalDetections != 3 {
		t.Errorf("unexpected record %+v", record)
	}

	_, err = f.svc.GetAnalysisRecord(context.Background(), "nope")
	if !errors.Is(err, analysis.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}
