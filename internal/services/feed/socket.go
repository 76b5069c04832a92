package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/metrics"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
)

const socketDialTimeout = 10 * time.Second

// streamSocket is the client side of the per-camera streaming-detection
// endpoint. One socket per DetectingStream transport; never shared.
type streamSocket struct {
	conn     *websocket.Conn
	cameraID string
}

// dialStreamSocket connects and sends the init payload the server expects
// before it starts pushing frames.
func dialStreamSocket(ctx context.Context, wsURL, cameraID string, init models.StreamInit) (*streamSocket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: socketDialTimeout}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		metrics.SocketDials.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to dial detection socket: %w", err)
	}

	if err := conn.WriteJSON(init); err != nil {
		conn.Close()
		metrics.SocketDials.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to send stream init: %w", err)
	}

	metrics.SocketDials.WithLabelValues("ok").Inc()
	log.Info().
		Str("camera_id", cameraID).
		Str("url", wsURL).
		Msg("Detection socket connected")

	return &streamSocket{conn: conn, cameraID: cameraID}, nil
}

// readLoop delivers parsed messages until the socket or context dies.
// Malformed messages are logged and dropped; the connection stays open.
func (s *streamSocket) readLoop(ctx context.Context, handler func(models.StreamMessage)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("detection socket read failed: %w", err)
		}

		var msg models.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().
				Err(err).
				Str("camera_id", s.cameraID).
				Int("bytes", len(data)).
				Msg("Dropping malformed socket message")
			metrics.StreamMessages.WithLabelValues("malformed").Inc()
			continue
		}

		metrics.StreamMessages.WithLabelValues(msg.Type).Inc()
		handler(msg)
	}
}

// close tears the connection down; safe to call while readLoop is blocked
func (s *streamSocket) close() {
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.conn.Close()
}
