package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialChat(t *testing.T, env *testEnv) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, payload string) wsFrame {
	t.Helper()
	if err := conn.Write(ctx, websocket.MessageText, []byte(payload)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return f
}

func TestChatSocket(t *testing.T) {
	env := newTestEnv(t)
	conn, ctx := dialChat(t, env)

	if f := roundTrip(t, ctx, conn, `{"type":"ping"}`); f.Type != "pong" {
		t.Errorf("ping -> %+v, want pong", f)
	}

	f := roundTrip(t, ctx, conn, `{"type":"message","content":"remind me to take ibuprofen at 7am"}`)
	if f.Type != "reply" || !strings.Contains(f.Content, "7:00 AM") {
		t.Errorf("message -> %+v", f)
	}

	tests := []struct {
		name    string
		payload string
	}{
		{"garbage", `not json`},
		{"empty message", `{"type":"message","content":""}`},
		{"unknown type", `{"type":"resize"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f := roundTrip(t, ctx, conn, tt.payload); f.Type != "error" {
				t.Errorf("%s -> %+v, want error", tt.payload, f)
			}
		})
	}

	reminders, err := env.repo.ListReminders(context.Background(), testUser)
	if err != nil || len(reminders) != 1 || reminders[0].Name != "ibuprofen" {
		t.Errorf("reminders = %+v, %v", reminders, err)
	}
}
