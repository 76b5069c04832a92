package models

// VehicleClass represents the object classes reported by the detection backend
type VehicleClass string

const (
	VehicleClassCar        VehicleClass = "car"
	VehicleClassMotorcycle VehicleClass = "motorcycle"
	VehicleClassBus        VehicleClass = "bus"
	VehicleClassTruck      VehicleClass = "truck"
	VehicleClassBicycle    VehicleClass = "bicycle"
	VehicleClassPerson     VehicleClass = "person"
)

// String returns the string representation of VehicleClass
func (vc VehicleClass) String() string {
	return string(vc)
}

// BoundingBox is an axis-aligned box in frame space (native pixel coordinates)
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection is a single per-frame detection from the backend.
// TrackID is nil when the detector does not track this instance across
// frames; an untracked detection can never be flagged as a violation.
type Detection struct {
	BBox       BoundingBox `json:"bbox"`
	ClassName  string      `json:"class_name"`
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	TrackID    *int        `json:"track_id,omitempty"`
}

// DetectionResult is the full detection state for one frame. The set is
// replaced wholesale on every new result.
type DetectionResult struct {
	Detections       []Detection    `json:"detections"`
	VehicleCount     map[string]int `json:"vehicle_count"`
	TotalCount       int            `json:"total_count"`
	FrameWidth       int            `json:"frame_width"`
	FrameHeight      int            `json:"frame_height"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
}

// ParkingViolation is a backend-computed violation keyed by track ID
type ParkingViolation struct {
	TrackID         int         `json:"track_id"`
	VehicleClass    string      `json:"vehicle_class"`
	ZoneID          string      `json:"zone_id"`
	ZoneName        string      `json:"zone_name"`
	DurationSeconds float64     `json:"duration_seconds"`
	BBox            BoundingBox `json:"bbox"`
}

// RedLightViolation is a backend-computed stop-line crossing on red
type RedLightViolation struct {
	TrackID      int         `json:"track_id"`
	VehicleClass string      `json:"vehicle_class"`
	ZoneID       string      `json:"zone_id"`
	ZoneName     string      `json:"zone_name"`
	BBox         BoundingBox `json:"bbox"`
	Timestamp    string      `json:"timestamp"`
}

// TrafficStats is the snapshot returned by GET /api/detection/stats/{cameraId}
type TrafficStats struct {
	CameraID           string              `json:"camera_id"`
	Timestamp          string              `json:"timestamp"`
	VehicleCounts      map[string]int      `json:"vehicle_counts"`
	TotalVehicles      int                 `json:"total_vehicles"`
	ParkingViolations  []ParkingViolation  `json:"parking_violations"`
	RedLightViolations []RedLightViolation `json:"red_light_violations"`
	ZonesOccupancy     map[string]int      `json:"zones_occupancy"`
}

// DetectRequest is the body for POST /api/detection/detect
type DetectRequest struct {
	ImageURL     string `json:"image_url"`
	CameraID     string `json:"camera_id,omitempty"`
	IncludeZones bool   `json:"include_zones"`
}

// DetectVideoRequest is the body for POST /api/detection/detect-video
type DetectVideoRequest struct {
	VideoURL     string `json:"video_url"`
	CameraID     string `json:"camera_id,omitempty"`
	IncludeZones bool   `json:"include_zones"`
}

// DetectResponse is the backend's envelope for all detect endpoints
type DetectResponse struct {
	Success            bool                `json:"success"`
	Result             *DetectionResult    `json:"result,omitempty"`
	Violations         []ParkingViolation  `json:"violations"`
	RedLightViolations []RedLightViolation `json:"red_light_violations"`
	Error              string              `json:"error,omitempty"`
}

// Stream message types pushed over /api/detection/video-stream/{cameraId}
const (
	StreamMessageConnected       = "connected"
	StreamMessageDetectionResult = "detection_result"
	StreamMessageError           = "error"
)

// StreamInit is sent by the client right after the socket opens
type StreamInit struct {
	VideoURL  string `json:"video_url"`
	SendFrame bool   `json:"send_frame"`
}

// StreamMessage is the server-pushed envelope on the detection socket.
// Frame, when present, is an inline base64 data URL of the annotated frame.
type StreamMessage struct {
	Type               string              `json:"type"`
	Message            string              `json:"message,omitempty"`
	Result             *DetectionResult    `json:"result,omitempty"`
	Violations         []ParkingViolation  `json:"violations,omitempty"`
	RedLightViolations []RedLightViolation `json:"red_light_violations,omitempty"`
	Frame              string              `json:"frame,omitempty"`
	Error              string              `json:"error,omitempty"`
}

// ViolationTrackSet builds the track-id membership set used to recolor
// detections. Untracked detections (nil TrackID) never match.
func ViolationTrackSet(violations []ParkingViolation) map[int]ParkingViolation {
	set := make(map[int]ParkingViolation, len(violations))
	for _, v := range violations {
		set[v.TrackID] = v
	}
	return set
}
