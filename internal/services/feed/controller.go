// Package feed owns the per-camera transport lifecycle: periodic snapshots,
// live HLS playback, and the websocket detection stream. Exactly one
// transport is active per controller; acquiring a new one releases the
// previous one first, and teardown on close is unconditional.
package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/helpers"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/metrics"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
)

// Events are the controller's callbacks into the owning view. Every callback
// carries the generation of the transport that produced it; consumers must
// drop events whose generation no longer matches Generation().
type Events struct {
	// OnFrame delivers raw media pixels (snapshot or pulled stream frame)
	OnFrame func(gen uint64, jpeg []byte)
	// OnAnnotatedFrame delivers a backend-annotated frame that replaces the
	// raw surface while stream detection is active
	OnAnnotatedFrame func(gen uint64, jpeg []byte)
	// OnDetection replaces the whole detection/violation state
	OnDetection func(gen uint64, result *models.DetectionResult, parking []models.ParkingViolation, redLight []models.RedLightViolation)
	// OnClear fires when detection is toggled off: detection state and any
	// annotated-frame override must be dropped
	OnClear func(gen uint64)
	// OnStatus records a best-effort human-readable status string
	OnStatus func(gen uint64, status string)
}

// Controller drives one camera's feed mode. Whether the source is a live
// stream is sniffed once from the URL and never changes.
type Controller struct {
	cfg      *config.Config
	client   *backend.Client
	events   Events
	cameraID string
	source   string
	isStream bool

	mu        sync.Mutex
	mode      models.FeedMode
	detecting bool
	cancel    context.CancelFunc
	closed    bool

	gen atomic.Uint64

	// Transport seams, replaceable in tests
	fetchSnapshot func(ctx context.Context, url string) ([]byte, error)
	detect        func(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error)
	dialSocket    func(ctx context.Context, wsURL, cameraID string, init models.StreamInit) (detectionSocket, error)
	openCapture   func(url string) (frameSource, error)
}

// detectionSocket is what the stream-detect transport needs from a socket
type detectionSocket interface {
	readLoop(ctx context.Context, handler func(models.StreamMessage)) error
	close()
}

func NewController(cfg *config.Config, client *backend.Client, cameraID, sourceURL string, events Events) *Controller {
	c := &Controller{
		cfg:      cfg,
		client:   client,
		events:   events,
		cameraID: cameraID,
		source:   sourceURL,
		isStream: helpers.IsStreamURL(sourceURL),
		mode:     models.FeedModeIdle,

		fetchSnapshot: client.FetchSnapshot,
		detect:        client.Detect,
		openCapture:   openGocvCapture,
	}
	c.dialSocket = func(ctx context.Context, wsURL, cameraID string, init models.StreamInit) (detectionSocket, error) {
		return dialStreamSocket(ctx, wsURL, cameraID, init)
	}
	return c
}

// Mode returns the current feed mode
func (c *Controller) Mode() models.FeedMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Detecting reports whether detection is toggled on
func (c *Controller) Detecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detecting
}

// IsStream reports the once-decided source classification
func (c *Controller) IsStream() bool {
	return c.isStream
}

// Generation is the id of the currently owned transport. Callbacks carrying
// an older generation are stale and must be ignored.
func (c *Controller) Generation() uint64 {
	return c.gen.Load()
}

// Start leaves Idle for the camera's default presentation mode
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode != models.FeedModeIdle {
		return
	}
	if c.isStream {
		c.startTransportLocked(models.FeedModeLiveStreaming)
	} else {
		c.startTransportLocked(models.FeedModeSnapshotPolling)
	}
}

// SetDetection toggles detection on or off, swapping the transport. Toggling
// off clears detection state and reverts the display to the raw surface.
func (c *Controller) SetDetection(on bool) {
	c.mu.Lock()
	if c.closed || c.detecting == on {
		c.mu.Unlock()
		return
	}
	c.detecting = on

	c.teardownLocked()

	var next models.FeedMode
	switch {
	case on && c.isStream:
		next = models.FeedModeDetectingStream
	case on:
		next = models.FeedModeDetectingSnapshot
	case c.isStream:
		next = models.FeedModeLiveStreaming
	default:
		next = models.FeedModeSnapshotPolling
	}
	c.startTransportLocked(next)
	gen := c.gen.Load()
	c.mu.Unlock()

	// delivered outside the lock: consumers read controller state re-entrantly
	if !on && c.events.OnClear != nil {
		c.events.OnClear(gen)
	}
}

// Close tears down whatever transport is active. Unconditional: not a
// modeled transition, always safe, always final.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.teardownLocked()
	c.mode = models.FeedModeIdle

	log.Debug().Str("camera_id", c.cameraID).Msg("Feed controller closed")
}

// teardownLocked releases the current transport and invalidates its
// generation so late callbacks are provably stale.
func (c *Controller) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen.Add(1)
}

func (c *Controller) startTransportLocked(mode models.FeedMode) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mode = mode
	gen := c.gen.Add(1)

	log.Info().
		Str("camera_id", c.cameraID).
		Str("mode", mode.String()).
		Uint64("generation", gen).
		Msg("Feed transport starting")

	switch mode {
	case models.FeedModeSnapshotPolling:
		go c.runSnapshotLoop(ctx, gen)
	case models.FeedModeLiveStreaming:
		go c.runLiveStreamLoop(ctx, gen)
	case models.FeedModeDetectingSnapshot:
		go c.runDetectSnapshotLoop(ctx, gen)
	case models.FeedModeDetectingStream:
		go c.runStreamDetectLoop(ctx, gen)
	}
}

// stale reports whether a transport generation has been superseded
func (c *Controller) stale(gen uint64) bool {
	return c.gen.Load() != gen
}

func (c *Controller) status(gen uint64, msg string) {
	if c.stale(gen) || c.events.OnStatus == nil {
		return
	}
	c.events.OnStatus(gen, msg)
}

// runSnapshotLoop refreshes the displayed image on a fixed cadence, each tick
// fetching a freshly cache-busted proxied URL.
func (c *Controller) runSnapshotLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.cfg.SnapshotInterval)
	defer ticker.Stop()

	c.fetchAndDeliverSnapshot(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fetchAndDeliverSnapshot(ctx, gen)
		}
	}
}

func (c *Controller) fetchAndDeliverSnapshot(ctx context.Context, gen uint64) {
	url := helpers.CacheBust(c.client.ProxyImageURL(c.source))
	data, err := c.fetchSnapshot(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("camera_id", c.cameraID).Msg("Snapshot fetch failed")
			c.status(gen, "snapshot unavailable: "+err.Error())
		}
		return
	}
	if c.stale(gen) {
		return
	}
	if c.events.OnFrame != nil {
		c.events.OnFrame(gen, data)
	}
}

// runDetectSnapshotLoop fires an immediate detection, then re-requests on the
// detect cadence. The display snapshot is refreshed alongside each tick.
func (c *Controller) runDetectSnapshotLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.cfg.DetectInterval)
	defer ticker.Stop()

	c.detectOnce(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.detectOnce(ctx, gen)
		}
	}
}

func (c *Controller) detectOnce(ctx context.Context, gen uint64) {
	c.fetchAndDeliverSnapshot(ctx, gen)

	req := models.DetectRequest{
		ImageURL:     helpers.CacheBust(c.source),
		CameraID:     c.cameraID,
		IncludeZones: true,
	}
	resp, err := c.detect(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			metrics.DetectRequests.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("camera_id", c.cameraID).Msg("Detection request failed")
			c.status(gen, "detection failed: "+err.Error())
		}
		return
	}
	if c.stale(gen) {
		return
	}

	if !resp.Success || resp.Result == nil {
		metrics.DetectRequests.WithLabelValues("rejected").Inc()
		c.status(gen, "detection failed: "+resp.Error)
		return
	}

	metrics.DetectRequests.WithLabelValues("ok").Inc()
	if c.events.OnDetection != nil {
		c.events.OnDetection(gen, resp.Result, resp.Violations, resp.RedLightViolations)
	}
}

// runLiveStreamLoop pulls frames from the proxied playlist. Open and read
// failures are swallowed into the status string; the loop keeps retrying the
// capture for as long as it owns the transport.
func (c *Controller) runLiveStreamLoop(ctx context.Context, gen uint64) {
	playlist := c.client.ProxyHLSURL(c.source)
	interval := time.Second / time.Duration(c.cfg.StreamReadFPS)

	for ctx.Err() == nil {
		src, err := c.openCapture(playlist)
		if err != nil {
			c.status(gen, "stream unavailable: "+err.Error())
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				continue
			}
		}

		c.status(gen, "")
		c.pullFrames(ctx, gen, src, interval)
		src.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (c *Controller) pullFrames(ctx context.Context, gen uint64, src frameSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jpeg, err := src.ReadJPEG(c.cfg.OutputQuality)
			if err != nil {
				c.status(gen, "stream read failed: "+err.Error())
				return
			}
			if c.stale(gen) {
				return
			}
			if c.events.OnFrame != nil {
				c.events.OnFrame(gen, jpeg)
			}
		}
	}
}

// runStreamDetectLoop replaces the raw stream with the websocket detection
// feed. On connect the camera's source URL is sent; inbound detection results
// replace the detection state and, when a frame is attached, the displayed
// surface. Socket errors end the transport without auto-retry; the user
// recovers by toggling detection off and on.
func (c *Controller) runStreamDetectLoop(ctx context.Context, gen uint64) {
	wsURL := c.client.VideoStreamURL(c.cameraID)
	init := models.StreamInit{VideoURL: c.source, SendFrame: true}

	sock, err := c.dialSocket(ctx, wsURL, c.cameraID, init)
	if err != nil {
		c.status(gen, "detection stream unavailable: "+err.Error())
		return
	}

	// unblock the read loop when the transport is released
	go func() {
		<-ctx.Done()
		sock.close()
	}()

	err = sock.readLoop(ctx, func(msg models.StreamMessage) {
		if c.stale(gen) {
			return
		}
		switch msg.Type {
		case models.StreamMessageConnected:
			c.status(gen, "stream detection connected")
		case models.StreamMessageDetectionResult:
			if msg.Result != nil && c.events.OnDetection != nil {
				c.events.OnDetection(gen, msg.Result, msg.Violations, msg.RedLightViolations)
			}
			if msg.Frame != "" {
				if jpeg, err := helpers.DecodeDataURL(msg.Frame); err == nil {
					if c.events.OnAnnotatedFrame != nil {
						c.events.OnAnnotatedFrame(gen, jpeg)
					}
				} else {
					log.Warn().Err(err).Str("camera_id", c.cameraID).Msg("Dropping undecodable annotated frame")
				}
			}
		case models.StreamMessageError:
			c.status(gen, "stream detection error: "+msg.Error)
		default:
			log.Debug().
				Str("camera_id", c.cameraID).
				Str("type", msg.Type).
				Msg("Ignoring unknown socket message type")
		}
	})

	if err != nil && ctx.Err() == nil {
		c.status(gen, "detection stream closed: "+err.Error())
	}
}
