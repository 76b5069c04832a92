package dashboard

import (
	"image"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/geometry"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/logging"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/metrics"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/overlay"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/feed"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/messaging"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/publisher/mjpeg"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/zones"
)

// View is one open camera view: a feed controller producing frames and
// detection state, composited with overlays and handed to the MJPEG
// publisher on every change.
type View struct {
	cfg        *config.Config
	camera     models.Camera
	zones      *zones.Service
	publisher  *mjpeg.Publisher
	alerter    *messaging.Alerter
	compositor *overlay.Compositor
	controller *feed.Controller
	logger     zerolog.Logger

	mu             sync.Mutex
	viewportWidth  int
	viewportHeight int
	frameWidth     int
	frameHeight    int
	showZones      bool
	showLabels     bool
	showViolations bool
	status         string

	rawJPEG       []byte
	annotatedJPEG []byte
	result        *models.DetectionResult
	violations    []models.ParkingViolation
	redLight      []models.RedLightViolation
}

func newView(cfg *config.Config, camera models.Camera, zoneSvc *zones.Service,
	pub *mjpeg.Publisher, alerter *messaging.Alerter, comp *overlay.Compositor,
	newController func(models.Camera, feed.Events) *feed.Controller) *View {

	v := &View{
		cfg:            cfg,
		camera:         camera,
		zones:          zoneSvc,
		publisher:      pub,
		alerter:        alerter,
		compositor:     comp,
		logger:         logging.WithCamera(logging.NewServiceLogger(cfg, "dashboard"), camera.ID),
		viewportWidth:  cfg.DefaultViewportWidth,
		viewportHeight: cfg.DefaultViewportHeight,
		frameWidth:     cfg.DefaultFrameWidth,
		frameHeight:    cfg.DefaultFrameHeight,
		showZones:      cfg.ShowZones,
		showLabels:     cfg.ShowLabels,
		showViolations: cfg.ShowViolations,
	}
	v.controller = newController(camera, feed.Events{
		OnFrame:          v.onFrame,
		OnAnnotatedFrame: v.onAnnotatedFrame,
		OnDetection:      v.onDetection,
		OnClear:          v.onClear,
		OnStatus:         v.onStatus,
	})
	return v
}

func (v *View) start() {
	v.controller.Start()
}

func (v *View) close() {
	v.controller.Close()
	v.publisher.DropCamera(v.camera.ID)
}

// fresh drops events raced out by a transport swap
func (v *View) fresh(gen uint64) bool {
	return v.controller.Generation() == gen
}

func (v *View) onFrame(gen uint64, jpeg []byte) {
	v.mu.Lock()
	if !v.fresh(gen) {
		v.mu.Unlock()
		return
	}
	v.rawJPEG = jpeg
	v.repaintLocked()
	v.mu.Unlock()
}

func (v *View) onAnnotatedFrame(gen uint64, jpeg []byte) {
	v.mu.Lock()
	if !v.fresh(gen) {
		v.mu.Unlock()
		return
	}
	v.annotatedJPEG = jpeg
	v.repaintLocked()
	v.mu.Unlock()
}

func (v *View) onDetection(gen uint64, result *models.DetectionResult,
	parking []models.ParkingViolation, redLight []models.RedLightViolation) {

	v.mu.Lock()
	if !v.fresh(gen) {
		v.mu.Unlock()
		return
	}
	v.result = result
	v.violations = parking
	v.redLight = redLight
	if result != nil && result.FrameWidth > 0 && result.FrameHeight > 0 {
		v.frameWidth = result.FrameWidth
		v.frameHeight = result.FrameHeight
	}
	v.repaintLocked()
	v.mu.Unlock()

	if v.alerter != nil {
		v.alerter.AlertViolations(v.camera.ID, parking, redLight)
		v.alerter.PublishSummary(v.camera.ID, result)
	}
}

func (v *View) onClear(gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.fresh(gen) {
		return
	}
	v.result = nil
	v.violations = nil
	v.redLight = nil
	v.annotatedJPEG = nil
	v.repaintLocked()
}

func (v *View) onStatus(gen uint64, status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.fresh(gen) {
		return
	}
	v.status = status
}

// repaint recomposites after an out-of-band change (zone edits, toggles)
func (v *View) repaint() {
	v.mu.Lock()
	v.repaintLocked()
	v.mu.Unlock()
}

// repaintLocked scales the current surface to the viewport, draws overlays
// and publishes the result. The annotated frame, when present, replaces the
// raw one; its boxes are already painted so only zones and the editor draft
// go on top.
func (v *View) repaintLocked() {
	surface := v.annotatedJPEG
	annotated := len(surface) > 0
	if !annotated {
		surface = v.rawJPEG
	}
	if len(surface) == 0 {
		return
	}

	img, err := gocv.IMDecode(surface, gocv.IMReadColor)
	if err != nil || img.Empty() {
		v.logger.Warn().Err(err).Msg("Dropping undecodable frame")
		return
	}
	defer img.Close()

	frameW, frameH := img.Cols(), img.Rows()
	if v.result != nil && v.result.FrameWidth > 0 && v.result.FrameHeight > 0 {
		frameW, frameH = v.result.FrameWidth, v.result.FrameHeight
	}
	v.frameWidth, v.frameHeight = frameW, frameH

	canvas := gocv.NewMat()
	defer canvas.Close()
	gocv.Resize(img, &canvas, image.Pt(v.viewportWidth, v.viewportHeight), 0, 0, gocv.InterpolationLinear)

	mapper := geometry.NewMapper(
		geometry.Size{Width: frameW, Height: frameH},
		geometry.Size{Width: v.viewportWidth, Height: v.viewportHeight})

	state := overlay.State{
		Mapper:         mapper,
		Zones:          v.zones.Cached(v.camera.ID),
		Violations:     v.violations,
		Draft:          v.zones.Draft(v.camera.ID),
		ShowZones:      v.showZones,
		ShowLabels:     v.showLabels,
		ShowViolations: v.showViolations,
	}
	if v.result != nil {
		state.VehicleCounts = v.result.VehicleCount
		state.TotalCount = v.result.TotalCount
		if !annotated {
			state.Detections = v.result.Detections
		}
	}
	v.compositor.Render(&canvas, state)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, canvas, []int{gocv.IMWriteJpegQuality, v.cfg.OutputQuality})
	if err != nil {
		v.logger.Warn().Err(err).Msg("Failed to encode composited frame")
		return
	}
	defer buf.Close()

	v.publisher.PublishJPEG(v.camera.ID, buf.GetBytes())
	metrics.FramesComposited.WithLabelValues(v.camera.ID).Inc()
}

// apply reconfigures the view. The detection toggle is handled by the
// manager, which enforces the editing rule first.
func (v *View) apply(req models.ViewRequest) {
	v.mu.Lock()
	if req.ViewportWidth > 0 {
		v.viewportWidth = req.ViewportWidth
	}
	if req.ViewportHeight > 0 {
		v.viewportHeight = req.ViewportHeight
	}
	if req.ShowZones != nil {
		v.showZones = *req.ShowZones
	}
	if req.ShowLabels != nil {
		v.showLabels = *req.ShowLabels
	}
	if req.ShowViolations != nil {
		v.showViolations = *req.ShowViolations
	}
	v.repaintLocked()
	v.mu.Unlock()

	if req.Detection != nil {
		v.controller.SetDetection(*req.Detection)
	}
}

// toFrame maps a viewport-space click back into frame coordinates
func (v *View) toFrame(p models.Point) models.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	mapper := geometry.NewMapper(
		geometry.Size{Width: v.frameWidth, Height: v.frameHeight},
		geometry.Size{Width: v.viewportWidth, Height: v.viewportHeight})
	return mapper.ToFrame(p, models.Point{})
}

// state snapshots the observable view state
func (v *View) state() models.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := models.ViewState{
		CameraID:       v.camera.ID,
		Mode:           v.controller.Mode(),
		Status:         v.status,
		Editing:        v.zones.Editing(v.camera.ID),
		FrameWidth:     v.frameWidth,
		FrameHeight:    v.frameHeight,
		ViewportWidth:  v.viewportWidth,
		ViewportHeight: v.viewportHeight,
		ShowZones:      v.showZones,
		ShowLabels:     v.showLabels,
		ShowViolations: v.showViolations,
		StreamURL:      "/api/cameras/" + v.camera.ID + "/stream",
	}
	if v.result != nil {
		st.DetectionCount = len(v.result.Detections)
		st.VehicleCounts = v.result.VehicleCount
	}
	st.ViolationCount = len(v.violations) + len(v.redLight)
	return st
}
