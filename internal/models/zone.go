package models

import (
	"fmt"
	"math/rand"
	"time"
)

// ZoneRole is the mutually exclusive role of a zone polygon
type ZoneRole string

const (
	ZoneRoleNormal       ZoneRole = "normal"
	ZoneRoleParking      ZoneRole = "parking"
	ZoneRoleTrafficLight ZoneRole = "traffic_light"
	ZoneRoleStopLine     ZoneRole = "stop_line"
)

// String returns the string representation of ZoneRole
func (r ZoneRole) String() string {
	return string(r)
}

// IsValid checks if the zone role is valid
func (r ZoneRole) IsValid() bool {
	switch r {
	case ZoneRoleNormal, ZoneRoleParking, ZoneRoleTrafficLight, ZoneRoleStopLine:
		return true
	default:
		return false
	}
}

// Point is a vertex in frame space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ZonePolygon is a user-defined polygon region. The backend owns zones; the
// flags mirror its wire format, where the role is encoded as booleans.
type ZonePolygon struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Points               []Point `json:"points"`
	IsParkingZone        bool    `json:"is_parking_zone"`
	IsTrafficLight       bool    `json:"is_traffic_light"`
	IsRedLight           bool    `json:"is_red_light"`
	IsStopLine           bool    `json:"is_stop_line"`
	LinkedTrafficLightID string  `json:"linked_traffic_light_id,omitempty"`
	Color                string  `json:"color"`
}

// Role collapses the wire flags into the mutually exclusive role
func (z *ZonePolygon) Role() ZoneRole {
	switch {
	case z.IsParkingZone:
		return ZoneRoleParking
	case z.IsTrafficLight:
		return ZoneRoleTrafficLight
	case z.IsStopLine:
		return ZoneRoleStopLine
	default:
		return ZoneRoleNormal
	}
}

// SetRole clears all role flags and sets the one matching role
func (z *ZonePolygon) SetRole(role ZoneRole) {
	z.IsParkingZone = role == ZoneRoleParking
	z.IsTrafficLight = role == ZoneRoleTrafficLight
	z.IsStopLine = role == ZoneRoleStopLine
}

// ZoneConfig is the wire shape for the bulk zone save endpoint
type ZoneConfig struct {
	CameraID string        `json:"camera_id"`
	Zones    []ZonePolygon `json:"zones"`
}

// ZoneListResponse is returned by the zone read/add/delete endpoints
type ZoneListResponse struct {
	Success  bool          `json:"success"`
	CameraID string        `json:"camera_id,omitempty"`
	Zones    []ZonePolygon `json:"zones"`
}

// NewZoneID mints a client-side zone id. It is authoritative only once the
// backend echoes it back.
func NewZoneID() string {
	return fmt.Sprintf("zone_%d_%06d", time.Now().UnixMilli(), rand.Intn(1000000))
}

// ZoneDraft is the in-progress polygon held by the zone editor. It exists
// only while drawing mode is active and is discarded on cancel.
type ZoneDraft struct {
	Name                 string   `json:"name"`
	Role                 ZoneRole `json:"role"`
	LinkedTrafficLightID string   `json:"linked_traffic_light_id,omitempty"`
	Color                string   `json:"color,omitempty"`
	Points               []Point  `json:"points"`
}

// FindZone returns the zone with the given id, or nil
func FindZone(zones []ZonePolygon, id string) *ZonePolygon {
	for i := range zones {
		if zones[i].ID == id {
			return &zones[i]
		}
	}
	return nil
}
