// Package mjpeg serves the composited camera views to browsers as
// multipart/x-mixed-replace streams.
package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
)

const keepaliveInterval = 2 * time.Second

type subscriber chan struct{}

type Publisher struct {
	cfg *config.Config

	jpegMutex  sync.RWMutex
	latestJPEG map[string][]byte

	subMutex    sync.Mutex
	subscribers map[string]map[subscriber]struct{}
}

func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{
		cfg:         cfg,
		latestJPEG:  make(map[string][]byte),
		subscribers: make(map[string]map[subscriber]struct{}),
	}
}

// PublishJPEG stores an already-encoded frame and wakes every stream watcher.
// The caller keeps ownership of jpeg; a copy is stored.
func (p *Publisher) PublishJPEG(cameraID string, jpeg []byte) {
	if len(jpeg) == 0 {
		return
	}
	stored := make([]byte, len(jpeg))
	copy(stored, jpeg)

	p.jpegMutex.Lock()
	p.latestJPEG[cameraID] = stored
	p.jpegMutex.Unlock()

	p.subMutex.Lock()
	for sub := range p.subscribers[cameraID] {
		select {
		case sub <- struct{}{}:
		default:
		}
	}
	p.subMutex.Unlock()
}

// DropCamera forgets the camera's last frame when its view closes
func (p *Publisher) DropCamera(cameraID string) {
	p.jpegMutex.Lock()
	delete(p.latestJPEG, cameraID)
	p.jpegMutex.Unlock()
}

func (p *Publisher) latest(cameraID string) []byte {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latestJPEG[cameraID]
}

func (p *Publisher) subscribe(cameraID string) subscriber {
	sub := make(subscriber, 5)
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	if p.subscribers[cameraID] == nil {
		p.subscribers[cameraID] = make(map[subscriber]struct{})
	}
	p.subscribers[cameraID][sub] = struct{}{}
	return sub
}

func (p *Publisher) unsubscribe(cameraID string, sub subscriber) {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	if subs := p.subscribers[cameraID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscribers, cameraID)
		}
	}
}

// StreamMJPEGHTTP writes the camera's view as an endless multipart stream.
// Each connected client gets its own wakeup channel; the latest frame is
// re-sent on a keepalive tick so idle feeds do not stall proxies.
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, cameraID string) {
	boundary := "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := p.subscribe(cameraID)
	defer p.unsubscribe(cameraID, sub)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := p.latest(cameraID)
	if len(first) == 0 {
		first = p.placeholderJPEG(cameraID)
	}
	if len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub:
		case <-keepalive.C:
		}
		if buf := p.latest(cameraID); len(buf) > 0 {
			if !writePart(buf) {
				return
			}
		}
	}
}

// placeholderJPEG renders the holding frame shown before the first real one
func (p *Publisher) placeholderJPEG(cameraID string) []byte {
	placeholder := gocv.NewMatWithSize(p.cfg.DefaultFrameHeight, p.cfg.DefaultFrameWidth, gocv.MatTypeCV8UC3)
	defer placeholder.Close()

	placeholder.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&placeholder, fmt.Sprintf("Camera: %s", cameraID),
		image.Pt(20, p.cfg.DefaultFrameHeight/2), gocv.FontHersheySimplex, 1.0, textColor, 2)
	gocv.PutText(&placeholder, "Waiting for feed...",
		image.Pt(20, p.cfg.DefaultFrameHeight/2+40), gocv.FontHersheySimplex, 0.8, textColor, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, placeholder, []int{gocv.IMWriteJpegQuality, p.cfg.OutputQuality})
	if err != nil {
		return nil
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data
}

func (p *Publisher) Shutdown() {
	log.Info().Msg("MJPEG publisher shutting down")
}
