package detector

import (
	"SlideScope/pkg/vision"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ItfDetector is a vision.Detector with connection management on top.
// The remote implementation wraps one loaded model instance on the
// inference server; that instance is not safe for concurrent calls, so
// Infer serializes access with a mutex. Parallelism across windows
// comes from running several replicas behind a Pool.
type ItfDetector interface {
	vision.Detector
	IsConnected() bool
	Reconnect() error
	Close()
}

type wsDetector struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
	readTimeout  time.Duration
	log          *logrus.Logger
}

type wireDetection struct {
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
}

type wireResponse struct {
	Detections []wireDetection `json:"detections"`
	Error      string          `json:"error,omitempty"`
}

// NewRemote connects to a model server websocket. The connection is
// established lazily in the background; a request arriving before the
// first successful dial triggers a reconnect.
func NewRemote(url string, log *logrus.Logger) ItfDetector {
	d := &wsDetector{
		url:          url,
		writeTimeout: 10 * time.Second,
		readTimeout:  60 * time.Second,
		log:          log,
	}

	go func() {
		if err := d.Reconnect(); err != nil {
			log.Warnf("Initial connection to detector at %s failed: %v. Will retry on demand.", url, err)
		} else {
			log.Infof("Connected to detector at %s", url)
		}
	}()

	return d
}

// NewRemoteFromEnv builds a detector (or replica pool) from the
// comma-separated DETECTOR_WS_URLS variable.
func NewRemoteFromEnv(log *logrus.Logger) (vision.Detector, error) {
	urls := splitURLs(os.Getenv("DETECTOR_WS_URLS"))
	if len(urls) == 0 {
		return nil, fmt.Errorf("DETECTOR_WS_URLS is not configured")
	}
	if len(urls) == 1 {
		return NewRemote(urls[0], log), nil
	}

	replicas := make([]vision.Detector, 0, len(urls))
	for _, u := range urls {
		replicas = append(replicas, NewRemote(u, log))
	}
	return NewPool(replicas), nil
}

func (d *wsDetector) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *wsDetector) Reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reconnectLocked()
}

func (d *wsDetector) reconnectLocked() error {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(d.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", d.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(d.writeTimeout))
		if err != nil {
			d.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	d.conn = conn
	return nil
}

// Infer sends one window's pixels to the model server and decodes its
// detections. Calls are serialized: the remote holds a single model
// instance and its behavior under concurrent requests is undefined.
func (d *wsDetector) Infer(ctx context.Context, window image.Image) ([]vision.Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, window); err != nil {
		return nil, fmt.Errorf("failed to encode window: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.conn == nil {
		if err := d.reconnectLocked(); err != nil {
			return nil, err
		}
	}

	deadline := time.Now().Add(d.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := d.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := d.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		d.dropConnLocked()
		return nil, fmt.Errorf("failed to send window to detector: %w", err)
	}

	readDeadline := time.Now().Add(d.readTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(readDeadline) {
		readDeadline = ctxDeadline
	}
	if err := d.conn.SetReadDeadline(readDeadline); err != nil {
		return nil, err
	}

	_, message, err := d.conn.ReadMessage()
	if err != nil {
		d.dropConnLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read detector response: %w", err)
	}

	var resp wireResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("malformed detector response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detector error: %s", resp.Error)
	}

	detections := make([]vision.Detection, 0, len(resp.Detections))
	for _, w := range resp.Detections {
		detections = append(detections, vision.Detection{
			BBox:       w.BBox,
			Confidence: w.Confidence,
			ClassID:    w.ClassID,
			ClassName:  w.ClassName,
		})
	}
	return detections, nil
}

func (d *wsDetector) dropConnLocked() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *wsDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropConnLocked()
}

func splitURLs(raw string) []string {
	var urls []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
