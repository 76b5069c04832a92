package models

// Camera is a single entry from the camera-list backend
type Camera struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Location string `json:"location,omitempty"`
}

// CameraList is the paginated camera-list response
type CameraList struct {
	Items []Camera `json:"items"`
	Total int      `json:"total"`
}

// CameraView is the user-facing camera entry merged with local selection state
type CameraView struct {
	Camera
	Selected bool `json:"selected"`
	ViewOpen bool `json:"view_open"`
}

// FeedMode is the presentation mode of an open camera view
type FeedMode string

const (
	FeedModeIdle              FeedMode = "idle"
	FeedModeSnapshotPolling   FeedMode = "snapshot_polling"
	FeedModeLiveStreaming     FeedMode = "live_streaming"
	FeedModeDetectingSnapshot FeedMode = "detecting_snapshot"
	FeedModeDetectingStream   FeedMode = "detecting_stream"
)

// String returns the string representation of FeedMode
func (m FeedMode) String() string {
	return string(m)
}

// Detecting reports whether detection is active in this mode
func (m FeedMode) Detecting() bool {
	return m == FeedModeDetectingSnapshot || m == FeedModeDetectingStream
}

// ViewRequest opens or reconfigures a camera view
type ViewRequest struct {
	ViewportWidth  int   `json:"viewport_width,omitempty"`
	ViewportHeight int   `json:"viewport_height,omitempty"`
	Detection      *bool `json:"detection,omitempty"`
	ShowZones      *bool `json:"show_zones,omitempty"`
	ShowLabels     *bool `json:"show_labels,omitempty"`
	ShowViolations *bool `json:"show_violations,omitempty"`
}

// ViewState is the observable state of an open camera view
type ViewState struct {
	CameraID       string         `json:"camera_id"`
	Mode           FeedMode       `json:"mode"`
	Status         string         `json:"status,omitempty"`
	Editing        bool           `json:"editing"`
	FrameWidth     int            `json:"frame_width"`
	FrameHeight    int            `json:"frame_height"`
	ViewportWidth  int            `json:"viewport_width"`
	ViewportHeight int            `json:"viewport_height"`
	ShowZones      bool           `json:"show_zones"`
	ShowLabels     bool           `json:"show_labels"`
	ShowViolations bool           `json:"show_violations"`
	DetectionCount int            `json:"detection_count"`
	ViolationCount int            `json:"violation_count"`
	VehicleCounts  map[string]int `json:"vehicle_counts,omitempty"`
	StreamURL      string         `json:"stream_url"`
}
