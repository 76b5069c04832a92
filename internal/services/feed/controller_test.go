package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/helpers"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
)

const waitFor = 2 * time.Second

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.APIBaseURL = "http://backend.test"
	cfg.SnapshotInterval = 20 * time.Millisecond
	cfg.DetectInterval = 20 * time.Millisecond
	cfg.StreamReadFPS = 50
	return cfg
}

// eventRecorder collects controller callbacks behind channels so tests can
// wait for deliveries without sleeping
type eventRecorder struct {
	mu         sync.Mutex
	frames     chan uint64
	detections chan uint64
	annotated  chan []byte
	cleared    chan uint64
	statuses   []string
}

func newRecorder() *eventRecorder {
	return &eventRecorder{
		frames:     make(chan uint64, 64),
		detections: make(chan uint64, 64),
		annotated:  make(chan []byte, 64),
		cleared:    make(chan uint64, 64),
	}
}

func (r *eventRecorder) events() Events {
	return Events{
		OnFrame: func(gen uint64, jpeg []byte) { r.frames <- gen },
		OnDetection: func(gen uint64, res *models.DetectionResult, parking []models.ParkingViolation, red []models.RedLightViolation) {
			r.detections <- gen
		},
		OnAnnotatedFrame: func(gen uint64, jpeg []byte) { r.annotated <- jpeg },
		OnClear:          func(gen uint64) { r.cleared <- gen },
		OnStatus: func(gen uint64, status string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, status)
		},
	}
}

func (r *eventRecorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func waitOn[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func newTestController(t *testing.T, sourceURL string) (*Controller, *eventRecorder) {
	t.Helper()
	cfg := testConfig()
	rec := newRecorder()
	c := NewController(cfg, backend.NewClient(cfg), "cam-1", sourceURL, rec.events())

	c.fetchSnapshot = func(ctx context.Context, url string) ([]byte, error) {
		return []byte{0xFF, 0xD8, 0x01}, nil
	}
	c.detect = func(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error) {
		return &models.DetectResponse{Success: true, Result: &models.DetectionResult{TotalCount: 1}}, nil
	}
	c.openCapture = func(url string) (frameSource, error) {
		return nil, fmt.Errorf("no capture in this test")
	}
	c.dialSocket = func(ctx context.Context, wsURL, cameraID string, init models.StreamInit) (detectionSocket, error) {
		return nil, fmt.Errorf("no socket in this test")
	}
	t.Cleanup(c.Close)
	return c, rec
}

func TestStartPicksSnapshotPollingForStills(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	c.Start()
	assert.Equal(t, models.FeedModeSnapshotPolling, c.Mode())
	assert.False(t, c.IsStream())
	waitOn(t, rec.frames, "first snapshot")
}

func TestStartPicksLiveStreamingForPlaylists(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1/index.m3u8")

	frames := &fakeSource{}
	c.openCapture = func(url string) (frameSource, error) {
		assert.Contains(t, url, "api/proxy/hls")
		return frames, nil
	}

	c.Start()
	assert.Equal(t, models.FeedModeLiveStreaming, c.Mode())
	assert.True(t, c.IsStream())
	waitOn(t, rec.frames, "first stream frame")
}

func TestDetectionToggleSwapsTransport(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	var detectURLs []string
	var mu sync.Mutex
	c.detect = func(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error) {
		mu.Lock()
		detectURLs = append(detectURLs, req.ImageURL)
		mu.Unlock()
		return &models.DetectResponse{Success: true, Result: &models.DetectionResult{TotalCount: 2}}, nil
	}

	c.Start()
	waitOn(t, rec.frames, "first snapshot")
	before := c.Generation()

	c.SetDetection(true)
	assert.Equal(t, models.FeedModeDetectingSnapshot, c.Mode())
	assert.True(t, c.Detecting())
	assert.Greater(t, c.Generation(), before)

	waitOn(t, rec.detections, "first detection")
	mu.Lock()
	require.NotEmpty(t, detectURLs)
	// the source URL is cache-busted per request, zones always included
	assert.True(t, strings.HasPrefix(detectURLs[0], "http://cams.example/cam1.jpg?t="))
	mu.Unlock()

	c.SetDetection(false)
	assert.Equal(t, models.FeedModeSnapshotPolling, c.Mode())
	assert.False(t, c.Detecting())
	cleared := waitOn(t, rec.cleared, "clear on toggle off")
	assert.Equal(t, c.Generation(), cleared)
}

func TestToggleIsIdempotent(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	c.Start()
	waitOn(t, rec.frames, "first snapshot")
	gen := c.Generation()

	// re-asserting the current toggle state must not restart the transport
	c.SetDetection(false)
	assert.Equal(t, gen, c.Generation())
	assert.Equal(t, models.FeedModeSnapshotPolling, c.Mode())
}

func TestStaleResultsAreDropped(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	c.detect = func(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error) {
		started <- struct{}{}
		<-release
		return &models.DetectResponse{Success: true, Result: &models.DetectionResult{TotalCount: 9}}, nil
	}

	c.Start()
	c.SetDetection(true)
	waitOn(t, started, "in-flight detection")

	// toggle off while the request is still in flight, then let it finish
	c.SetDetection(false)
	close(release)

	select {
	case gen := <-rec.detections:
		t.Fatalf("stale detection with generation %d was delivered", gen)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDetectFailureReportsStatusOnly(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	c.detect = func(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error) {
		return nil, fmt.Errorf("backend down")
	}

	c.Start()
	c.SetDetection(true)
	waitOn(t, rec.frames, "display snapshot still refreshes")

	assert.Eventually(t, func() bool {
		return strings.Contains(rec.lastStatus(), "backend down")
	}, waitFor, 10*time.Millisecond)

	select {
	case <-rec.detections:
		t.Fatal("failed request must not replace detection state")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRejectedDetectResponseReportsBackendError(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	c.detect = func(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error) {
		return &models.DetectResponse{Success: false, Error: "model not loaded"}, nil
	}

	c.Start()
	c.SetDetection(true)
	waitOn(t, rec.frames, "display snapshot")

	assert.Eventually(t, func() bool {
		return strings.Contains(rec.lastStatus(), "model not loaded")
	}, waitFor, 10*time.Millisecond)
}

func TestStreamDetectionDeliversAnnotatedFrames(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1/index.m3u8")

	annotated := []byte{0xFF, 0xD8, 0xAA, 0xBB}
	sock := &fakeSocket{msgs: []models.StreamMessage{
		{Type: models.StreamMessageConnected, Message: "Connected to video stream"},
		{
			Type:   models.StreamMessageDetectionResult,
			Result: &models.DetectionResult{TotalCount: 3},
			Frame:  helpers.EncodeDataURL(annotated),
		},
		{Type: models.StreamMessageError, Error: "decode hiccup"},
	}}

	var gotInit models.StreamInit
	c.dialSocket = func(ctx context.Context, wsURL, cameraID string, init models.StreamInit) (detectionSocket, error) {
		gotInit = init
		assert.Contains(t, wsURL, "/api/detection/video-stream/cam-1")
		return sock, nil
	}

	c.Start()
	c.SetDetection(true)
	assert.Equal(t, models.FeedModeDetectingStream, c.Mode())

	waitOn(t, rec.detections, "pushed detection result")
	frame := waitOn(t, rec.annotated, "annotated frame")
	assert.Equal(t, annotated, frame)

	// init carries the raw source URL, frames requested inline
	assert.Equal(t, "http://cams.example/cam1/index.m3u8", gotInit.VideoURL)
	assert.True(t, gotInit.SendFrame)

	assert.Eventually(t, func() bool {
		return strings.Contains(rec.lastStatus(), "decode hiccup")
	}, waitFor, 10*time.Millisecond)
}

func TestSocketDialFailureDoesNotRetry(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1/index.m3u8")

	var dials int
	var mu sync.Mutex
	c.dialSocket = func(ctx context.Context, wsURL, cameraID string, init models.StreamInit) (detectionSocket, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, fmt.Errorf("connection refused")
	}

	c.Start()
	c.SetDetection(true)

	assert.Eventually(t, func() bool {
		return strings.Contains(rec.lastStatus(), "connection refused")
	}, waitFor, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, dials)
	mu.Unlock()
}

func TestLiveStreamReopensAfterReadFailure(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1/index.m3u8")

	var opens int
	var mu sync.Mutex
	c.openCapture = func(url string) (frameSource, error) {
		mu.Lock()
		opens++
		n := opens
		mu.Unlock()
		if n == 1 {
			return &fakeSource{failAfter: 1}, nil
		}
		return &fakeSource{}, nil
	}

	c.Start()
	waitOn(t, rec.frames, "frame before failure")
	waitOn(t, rec.frames, "frame from reopened capture")

	mu.Lock()
	assert.GreaterOrEqual(t, opens, 2)
	mu.Unlock()
}

func TestCloseIsFinal(t *testing.T) {
	c, rec := newTestController(t, "http://cams.example/cam1.jpg")

	c.Start()
	waitOn(t, rec.frames, "first snapshot")

	c.Close()
	assert.Equal(t, models.FeedModeIdle, c.Mode())

	// nothing restarts a closed controller
	gen := c.Generation()
	c.Start()
	c.SetDetection(true)
	assert.Equal(t, gen, c.Generation())
	assert.Equal(t, models.FeedModeIdle, c.Mode())
}

// fakeSource emits tiny JPEG-ish payloads, optionally failing after N reads
type fakeSource struct {
	mu        sync.Mutex
	reads     int
	failAfter int
}

func (f *fakeSource) ReadJPEG(quality int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failAfter > 0 && f.reads > f.failAfter {
		return nil, fmt.Errorf("stream returned no frame")
	}
	return []byte{0xFF, 0xD8, byte(f.reads)}, nil
}

func (f *fakeSource) Close() error { return nil }

// fakeSocket replays scripted messages then blocks until closed
type fakeSocket struct {
	msgs   []models.StreamMessage
	closed chan struct{}
	once   sync.Once
}

func (f *fakeSocket) readLoop(ctx context.Context, handler func(models.StreamMessage)) error {
	f.once.Do(func() { f.closed = make(chan struct{}) })
	for _, m := range f.msgs {
		handler(m)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.closed:
		return fmt.Errorf("use of closed network connection")
	}
}

func (f *fakeSocket) close() {
	f.once.Do(func() { f.closed = make(chan struct{}) })
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
}
