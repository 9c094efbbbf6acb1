package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSubmitter struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSubmitter) Submit(_ context.Context, caller service.Caller, text string) (*service.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return &service.SubmitResponse{
		Type:      service.ResponseEscalation,
		Message:   "ack for " + caller.DisplayName,
		MessageID: 7,
	}, nil
}

func startServer(t *testing.T, userID uint) (*Hub, *fakeSubmitter, *websocket.Conn) {
	t.Helper()

	submitter := &fakeSubmitter{}
	hub := NewHub(submitter, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set(middleware.ClaimsContextKey, &jwt.JWTClaims{UserID: userID, DisplayName: "Hanako", Role: jwt.RoleUser})
	}, NewHandler(hub, nil).Serve)

	srv := httptest.NewServer(r)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		srv.Close()
	})
	return hub, submitter, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func frameType(t *testing.T, frame map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	require.NoError(t, json.Unmarshal(frame["type"], &typ))
	return typ
}

func TestChatFrameRunsSubmit(t *testing.T) {
	_, submitter, conn := startServer(t, 3)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "chat",
		"content": map[string]string{"content": "駐車場はありますか"},
	}))

	assert.Equal(t, TypeTyping, frameType(t, readFrame(t, conn)))
	reply := readFrame(t, conn)
	require.Equal(t, TypeReply, frameType(t, reply))

	var resp service.SubmitResponse
	require.NoError(t, json.Unmarshal(reply["content"], &resp))
	assert.Equal(t, service.ResponseEscalation, resp.Type)
	assert.Equal(t, "ack for Hanako", resp.Message)

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	assert.Equal(t, []string{"駐車場はありますか"}, submitter.texts)
}

func TestBlankChatFrameIsRejected(t *testing.T) {
	_, submitter, conn := startServer(t, 3)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "chat",
		"content": map[string]string{"content": "   "},
	}))

	assert.Equal(t, TypeError, frameType(t, readFrame(t, conn)))
	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	assert.Empty(t, submitter.texts)
}

func TestPingFrame(t *testing.T) {
	_, _, conn := startServer(t, 3)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, TypePong, frameType(t, readFrame(t, conn)))
}

func TestNotifyUserReachesOwnerOnly(t *testing.T) {
	hub, _, conn := startServer(t, 3)
	require.Eventually(t, func() bool { return hub.Connections(3) == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.NotifyUser(4, service.EventStaffMessage, map[string]string{"content": "not yours"})
	hub.NotifyUser(3, service.EventStaffMessage, map[string]string{"content": "お待たせしました"})

	frame := readFrame(t, conn)
	require.Equal(t, service.EventStaffMessage, frameType(t, frame))
	assert.JSONEq(t, `{"content":"お待たせしました"}`, string(frame["content"]))
}

func TestClientLeavesOnClose(t *testing.T) {
	hub, _, conn := startServer(t, 3)
	require.Eventually(t, func() bool { return hub.Connections(3) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(3) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsForeignOrigin(t *testing.T) {
	h := NewHandler(NewHub(&fakeSubmitter{}, logger.Discard()), []string{"https://desk.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://desk.example")
	assert.True(t, h.upgrader.CheckOrigin(req))
}
