// Package overlay repaints zone polygons, detection boxes, violation callouts
// and the in-progress editor polygon onto a viewport-sized frame.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"gocv.io/x/gocv"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/geometry"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
)

const (
	zoneFillAlpha   = 0.25
	dashLength      = 10.0
	vertexRadius    = 5
	labelFontScale  = 0.55
	labelThickness  = 1
	boxThickness    = 2
	outlineThick    = 2
	calloutGap      = 18
	minPolygonEdges = 3
)

// Class colors match the palette the detection backend annotates with
var classColors = map[string]color.RGBA{
	"car":        {R: 0, G: 255, B: 0, A: 255},
	"motorcycle": {R: 255, G: 255, B: 0, A: 255},
	"bus":        {R: 255, G: 136, B: 0, A: 255},
	"truck":      {R: 255, G: 0, B: 255, A: 255},
	"bicycle":    {R: 0, G: 255, B: 255, A: 255},
	"person":     {R: 0, G: 136, B: 255, A: 255},
}

var (
	defaultClassColor = color.RGBA{R: 0, G: 200, B: 255, A: 255}
	violationColor    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	whiteColor        = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelBgColor      = color.RGBA{R: 0, G: 0, B: 0, A: 180}
)

// Role colors: parking red, traffic light red/green by signal, stop line red
// when its linked light is red else white, normal green.
var roleColors = map[models.ZoneRole]color.RGBA{
	models.ZoneRoleNormal:       {R: 0, G: 255, B: 0, A: 255},
	models.ZoneRoleParking:      {R: 255, G: 60, B: 60, A: 255},
	models.ZoneRoleTrafficLight: {R: 0, G: 255, B: 0, A: 255},
	models.ZoneRoleStopLine:     {R: 255, G: 255, B: 255, A: 255},
}

// Hershey fonts cannot render the dashboard's emoji markers, so labels carry
// ASCII role prefixes instead.
var rolePrefixes = map[models.ZoneRole]string{
	models.ZoneRoleNormal:       "",
	models.ZoneRoleParking:      "[P] ",
	models.ZoneRoleTrafficLight: "[TL] ",
	models.ZoneRoleStopLine:     "[STOP] ",
}

// State is everything one repaint depends on. The compositor reads it and
// draws; it never mutates it.
type State struct {
	Mapper     geometry.Mapper
	Zones      []models.ZonePolygon
	Detections []models.Detection
	Violations []models.ParkingViolation
	Draft      *models.ZoneDraft

	// Per-class counts for the summary line
	VehicleCounts map[string]int
	TotalCount    int

	ShowZones      bool
	ShowLabels     bool
	ShowViolations bool
}

// Compositor performs the single repaint pass. Safe for reuse across frames;
// it holds no per-frame state.
type Compositor struct{}

func New() *Compositor {
	return &Compositor{}
}

// Render repaints all overlays onto canvas, which must already be sized to
// the viewport. Draw order: zones, detections, draft polygon — later draws
// land visually on top. Entities with insufficient geometry are skipped,
// never an error.
func (c *Compositor) Render(canvas *gocv.Mat, state State) {
	if canvas == nil || canvas.Empty() {
		return
	}

	if state.ShowZones {
		c.drawZones(canvas, state)
	}
	c.drawDetections(canvas, state)
	if state.Draft != nil {
		c.drawDraft(canvas, state)
	}
	if state.ShowLabels {
		c.drawSummary(canvas, state)
	}
}

// Fixed order keeps the summary line stable across frames
var summaryOrder = []string{"car", "motorcycle", "bus", "truck", "bicycle", "person"}

func (c *Compositor) drawSummary(canvas *gocv.Mat, state State) {
	if state.TotalCount == 0 {
		return
	}
	drawLabelWithBackground(canvas, formatSummaryLine(state.VehicleCounts, state.TotalCount), 8, 24, whiteColor)
}

func formatSummaryLine(counts map[string]int, total int) string {
	parts := make([]string, 0, len(summaryOrder))
	for _, class := range summaryOrder {
		if n := counts[class]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", class, n))
		}
	}
	text := fmt.Sprintf("Vehicles: %d", total)
	if len(parts) > 0 {
		text += "  " + strings.Join(parts, " ")
	}
	return text
}

func (c *Compositor) drawZones(canvas *gocv.Mat, state State) {
	// Translucent fills are composited in one AddWeighted pass
	fillLayer := canvas.Clone()
	defer fillLayer.Close()
	filled := false

	for i := range state.Zones {
		zone := &state.Zones[i]
		if len(zone.Points) < minPolygonEdges {
			continue
		}

		pts := toImagePoints(state.Mapper.PolygonToViewport(zone.Points))
		zoneColor := c.zoneColor(zone, state.Zones)

		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		gocv.FillPoly(&fillLayer, pv, zoneColor)
		pv.Close()
		filled = true
	}

	if filled {
		gocv.AddWeighted(fillLayer, zoneFillAlpha, *canvas, 1-zoneFillAlpha, 0, canvas)
	}

	for i := range state.Zones {
		zone := &state.Zones[i]
		if len(zone.Points) < minPolygonEdges {
			continue
		}

		vp := state.Mapper.PolygonToViewport(zone.Points)
		pts := toImagePoints(vp)
		zoneColor := c.zoneColor(zone, state.Zones)

		if zone.Role() == models.ZoneRoleStopLine {
			drawDashedPolygon(canvas, pts, zoneColor, outlineThick)
			c.drawStopLineConnector(canvas, zone, state)
		} else {
			pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
			gocv.Polylines(canvas, pv, true, zoneColor, outlineThick)
			pv.Close()
		}

		if state.ShowLabels {
			label := rolePrefixes[zone.Role()] + zone.Name
			anchor := state.Mapper.ToViewport(geometry.Centroid(zone.Points))
			drawLabelWithBackground(canvas, label, int(anchor.X), int(anchor.Y), zoneColor)
		}
	}
}

// zoneColor resolves the role-keyed display color. Traffic lights flip
// red/green with is_red_light; stop lines mirror their linked light.
func (c *Compositor) zoneColor(zone *models.ZonePolygon, all []models.ZonePolygon) color.RGBA {
	switch zone.Role() {
	case models.ZoneRoleTrafficLight:
		if zone.IsRedLight {
			return color.RGBA{R: 255, G: 0, B: 0, A: 255}
		}
		return color.RGBA{R: 0, G: 255, B: 0, A: 255}
	case models.ZoneRoleStopLine:
		if linked := models.FindZone(all, zone.LinkedTrafficLightID); linked != nil && linked.IsRedLight {
			return color.RGBA{R: 255, G: 60, B: 60, A: 255}
		}
		return roleColors[models.ZoneRoleStopLine]
	default:
		return roleColors[zone.Role()]
	}
}

// drawStopLineConnector draws a dashed audit line from the stop line's
// centroid to its linked traffic light's centroid.
func (c *Compositor) drawStopLineConnector(canvas *gocv.Mat, zone *models.ZonePolygon, state State) {
	linked := models.FindZone(state.Zones, zone.LinkedTrafficLightID)
	if linked == nil || len(linked.Points) < minPolygonEdges {
		return
	}

	from := state.Mapper.ToViewport(geometry.Centroid(zone.Points))
	to := state.Mapper.ToViewport(geometry.Centroid(linked.Points))
	drawDashedLine(canvas,
		image.Pt(int(from.X), int(from.Y)),
		image.Pt(int(to.X), int(to.Y)),
		color.RGBA{R: 255, G: 200, B: 0, A: 255}, 1)
}

func (c *Compositor) drawDetections(canvas *gocv.Mat, state State) {
	violations := models.ViolationTrackSet(state.Violations)

	for _, det := range state.Detections {
		box := state.Mapper.BoxToViewport(det.BBox)
		x1, y1 := int(box.X1), int(box.Y1)
		x2, y2 := int(box.X2), int(box.Y2)

		width, height := canvas.Cols(), canvas.Rows()
		x1 = clamp(x1, 0, width-2)
		y1 = clamp(y1, 0, height-2)
		x2 = clamp(x2, x1+1, width-1)
		y2 = clamp(y2, y1+1, height-1)

		var violation *models.ParkingViolation
		if state.ShowViolations && det.TrackID != nil {
			if v, ok := violations[*det.TrackID]; ok {
				violation = &v
			}
		}

		boxColor := defaultClassColor
		if col, ok := classColors[det.ClassName]; ok {
			boxColor = col
		}
		if violation != nil {
			boxColor = violationColor
		}

		gocv.Rectangle(canvas, image.Rect(x1, y1, x2, y2), boxColor, boxThickness)

		if state.ShowLabels {
			drawLabelWithBackground(canvas, formatDetectionLabel(det), x1, y1, boxColor)
		}

		if violation != nil {
			callout := fmt.Sprintf("%s %.0fs", violation.ZoneName, math.Round(violation.DurationSeconds))
			drawLabelWithBackground(canvas, callout, x1, y2+calloutGap, violationColor)
		}
	}
}

func (c *Compositor) drawDraft(canvas *gocv.Mat, state State) {
	draft := state.Draft
	if len(draft.Points) == 0 {
		return
	}

	draftColor := roleColors[models.ZoneRoleNormal]
	if col, ok := roleColors[draft.Role]; ok {
		draftColor = col
	}

	pts := toImagePoints(state.Mapper.PolygonToViewport(draft.Points))
	for i := 1; i < len(pts); i++ {
		drawDashedLine(canvas, pts[i-1], pts[i], draftColor, outlineThick)
	}
	// closing preview once the polygon is viable
	if len(pts) >= minPolygonEdges {
		drawDashedLine(canvas, pts[len(pts)-1], pts[0], draftColor, 1)
	}

	for _, p := range pts {
		gocv.Circle(canvas, p, vertexRadius, draftColor, -1)
		gocv.Circle(canvas, p, vertexRadius, whiteColor, 1)
	}
}

// formatDetectionLabel renders "ID:<track> <class> <pct>%"; the track part is
// omitted for untracked detections.
func formatDetectionLabel(det models.Detection) string {
	pct := int(math.Round(det.Confidence * 100))
	if det.TrackID != nil {
		return fmt.Sprintf("ID:%d %s %d%%", *det.TrackID, det.ClassName, pct)
	}
	return fmt.Sprintf("%s %d%%", det.ClassName, pct)
}

func drawLabelWithBackground(mat *gocv.Mat, text string, x, y int, textColor color.RGBA) {
	fontFace := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(text, fontFace, labelFontScale, labelThickness)

	labelY := y - 8
	if labelY < textSize.Y+4 {
		labelY = y + textSize.Y + 8
	}
	labelX := x
	if labelX+textSize.X > mat.Cols() {
		labelX = mat.Cols() - textSize.X - 4
	}
	if labelX < 0 {
		labelX = 0
	}
	if labelY > mat.Rows()-2 {
		labelY = mat.Rows() - 2
	}

	gocv.Rectangle(mat,
		image.Rect(labelX-2, labelY-textSize.Y-2, labelX+textSize.X+2, labelY+2),
		labelBgColor, -1)
	gocv.PutText(mat, text, image.Pt(labelX, labelY), fontFace, labelFontScale, textColor, labelThickness+1)
}

func drawDashedPolygon(mat *gocv.Mat, pts []image.Point, c color.RGBA, thickness int) {
	for i := range pts {
		drawDashedLine(mat, pts[i], pts[(i+1)%len(pts)], c, thickness)
	}
}

func drawDashedLine(mat *gocv.Mat, from, to image.Point, c color.RGBA, thickness int) {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		return
	}

	steps := int(dist / dashLength)
	if steps == 0 {
		gocv.Line(mat, from, to, c, thickness)
		return
	}

	for i := 0; i <= steps; i += 2 {
		t0 := float64(i) * dashLength / dist
		t1 := math.Min(float64(i+1)*dashLength/dist, 1)
		p0 := image.Pt(from.X+int(dx*t0), from.Y+int(dy*t0))
		p1 := image.Pt(from.X+int(dx*t1), from.Y+int(dy*t1))
		gocv.Line(mat, p0, p1, c, thickness)
	}
}

func toImagePoints(points []models.Point) []image.Point {
	out := make([]image.Point, len(points))
	for i, p := range points {
		out[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
