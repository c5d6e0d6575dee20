package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"

	"github.com/medassist/medassist/internal/identity"
)

const (
	maxMessageRunes = 2000
	wsWriteTimeout  = 10 * time.Second
)

// wsFrame is both the client and the server frame.
type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ChatSocket serves chat turns over a WebSocket.
type ChatSocket struct {
	engine         ChatEngine
	originPatterns []string
	readLimit      int64
}

// NewChatSocket creates a WebSocket chat handler. originPatterns follow
// websocket.AcceptOptions; nil accepts same-origin requests only.
func NewChatSocket(engine ChatEngine, originPatterns []string, readLimit int64) *ChatSocket {
	if readLimit <= 0 {
		readLimit = defaultMaxBodySize
	}
	return &ChatSocket{engine: engine, originPatterns: originPatterns, readLimit: readLimit}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (s *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(s.readLimit)

	slog.Info("Chat socket opened", "user_id", userID)
	s.readLoop(r.Context(), ws, userID)
	slog.Info("Chat socket closed", "user_id", userID)
}

func (s *ChatSocket) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		reply := s.handleFrame(ctx, userID, data)
		if err := writeFrame(ctx, ws, reply); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (s *ChatSocket) handleFrame(ctx context.Context, userID string, data []byte) wsFrame {
	var msg wsFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		return wsFrame{Type: "error", Content: "invalid frame"}
	}

	switch msg.Type {
	case "ping":
		return wsFrame{Type: "pong"}
	case "message":
		if msg.Content == "" {
			return wsFrame{Type: "error", Content: "message is required"}
		}
		if utf8.RuneCountInString(msg.Content) > maxMessageRunes {
			return wsFrame{Type: "error", Content: "message must be at most 2000 characters"}
		}
		reply, err := s.engine.Handle(ctx, userID, msg.Content)
		if err != nil {
			slog.Error("Chat turn failed", "user_id", userID, "error", err)
			return wsFrame{Type: "error", Content: "failed to process message"}
		}
		return wsFrame{Type: "reply", Content: reply}
	default:
		return wsFrame{Type: "error", Content: "unknown frame type"}
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, f wsFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
