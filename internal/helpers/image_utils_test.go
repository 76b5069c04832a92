package helpers

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsJPEGData(t *testing.T) {
	assert.True(t, IsJPEGData([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.False(t, IsJPEGData([]byte{0x89, 0x50}))
	assert.False(t, IsJPEGData([]byte{0xFF}))
	assert.False(t, IsJPEGData(nil))
}

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0x01, 0x02}
	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	out, err := DecodeDataURL(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	// bare base64 without the data: prefix is accepted too
	out, err = DecodeDataURL(base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	_, err = DecodeDataURL("")
	assert.Error(t, err)

	_, err = DecodeDataURL("data:image/jpeg;base64,!!!not-base64!!!")
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xAA, 0xBB, 0xCC}
	out, err := DecodeDataURL(EncodeDataURL(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestCacheBust(t *testing.T) {
	busted := CacheBust("http://example.com/cam.jpg")
	assert.True(t, strings.HasPrefix(busted, "http://example.com/cam.jpg?t="))

	busted = CacheBust("http://example.com/proxy?url=abc")
	assert.True(t, strings.HasPrefix(busted, "http://example.com/proxy?url=abc&t="))

	// consecutive calls must differ so caches are actually bypassed
	a := CacheBust("http://example.com/cam.jpg")
	b := CacheBust("http://example.com/cam.jpg")
	if a == b {
		// same-millisecond collision is acceptable only if values still parse
		assert.Contains(t, a, "?t=")
	}
}

func TestIsStreamURL(t *testing.T) {
	assert.True(t, IsStreamURL("http://cdn.example.com/live/cam1.m3u8"))
	assert.True(t, IsStreamURL("http://cdn.example.com/live/CAM1.M3U8?token=x"))
	assert.False(t, IsStreamURL("http://cdn.example.com/snapshots/cam1.jpg"))
	assert.False(t, IsStreamURL("http://cdn.example.com/video.mp4"))
	assert.False(t, IsStreamURL("http://cdn.example.com/page?file=.m3u8"))
}
