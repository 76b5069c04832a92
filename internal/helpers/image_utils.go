package helpers

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// DecodeDataURL decodes an inline base64 image ("data:image/jpeg;base64,..."
// or bare base64) into raw image bytes. The detection socket pushes annotated
// frames in this form.
func DecodeDataURL(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty image data")
	}
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("decoded image is empty")
	}
	return data, nil
}

// EncodeDataURL wraps JPEG bytes in the data URL form the dashboard consumes
func EncodeDataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

// CacheBust appends a timestamp query parameter so every fetch bypasses
// intermediate caches. Each snapshot tick produces a fresh URL.
func CacheBust(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", url, sep, time.Now().UnixMilli())
}

// IsStreamURL sniffs whether a camera source is a live streaming playlist.
// Decided once per camera from the URL shape alone.
func IsStreamURL(url string) bool {
	lower := strings.ToLower(url)
	if idx := strings.IndexAny(lower, "?#"); idx >= 0 {
		lower = lower[:idx]
	}
	return strings.Contains(lower, ".m3u8")
}
