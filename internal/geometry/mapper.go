// Package geometry maps points between frame space (native pixel coordinates
// of the source image/video) and viewport space (the rendered container).
package geometry

import "github.com/NguyenVanMinhGiang2005/ITS/internal/models"

// Fallback dimensions used until the media reports its natural size
const (
	FallbackWidth  = 640
	FallbackHeight = 360
)

// Size is a width/height pair in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Mapper projects points between frame space and viewport space. Axes scale
// independently; viewport stretching distorts shapes but boxes and polygons
// stay geometrically consistent with each other.
type Mapper struct {
	Frame    Size
	Viewport Size
}

// NewMapper builds a mapper, substituting fallback dimensions for any
// zero/negative size so scale factors stay finite.
func NewMapper(frame, viewport Size) Mapper {
	if !frame.Valid() {
		frame = Size{Width: FallbackWidth, Height: FallbackHeight}
	}
	if !viewport.Valid() {
		viewport = Size{Width: FallbackWidth, Height: FallbackHeight}
	}
	return Mapper{Frame: frame, Viewport: viewport}
}

// ScaleX returns viewportWidth / frameWidth
func (m Mapper) ScaleX() float64 {
	return float64(m.Viewport.Width) / float64(m.Frame.Width)
}

// ScaleY returns viewportHeight / frameHeight
func (m Mapper) ScaleY() float64 {
	return float64(m.Viewport.Height) / float64(m.Frame.Height)
}

// ToViewport projects a frame-space point into viewport space
func (m Mapper) ToViewport(p models.Point) models.Point {
	return models.Point{X: p.X * m.ScaleX(), Y: p.Y * m.ScaleY()}
}

// ToFrame converts an on-screen point back to frame space. The origin is the
// container's on-screen offset, subtracted before dividing out the scale.
func (m Mapper) ToFrame(client models.Point, origin models.Point) models.Point {
	return models.Point{
		X: (client.X - origin.X) / m.ScaleX(),
		Y: (client.Y - origin.Y) / m.ScaleY(),
	}
}

// BoxToViewport projects a frame-space bounding box into viewport space
func (m Mapper) BoxToViewport(b models.BoundingBox) models.BoundingBox {
	sx, sy := m.ScaleX(), m.ScaleY()
	return models.BoundingBox{
		X1: b.X1 * sx,
		Y1: b.Y1 * sy,
		X2: b.X2 * sx,
		Y2: b.Y2 * sy,
	}
}

// PolygonToViewport projects every vertex of a frame-space polygon
func (m Mapper) PolygonToViewport(points []models.Point) []models.Point {
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[i] = m.ToViewport(p)
	}
	return out
}

// Centroid is the unweighted mean of the polygon's points
func Centroid(points []models.Point) models.Point {
	if len(points) == 0 {
		return models.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return models.Point{X: sx / n, Y: sy / n}
}
