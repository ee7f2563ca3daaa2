package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
	xlogger "AgriPrice/pkg/logger"
)

type scriptedAsker struct{}

func (scriptedAsker) Ask(_ context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if len(req.ClarifyAnswers) == 0 {
		return &models.AskResponse{
			Type: models.ResponseClarify,
			Clarification: &models.Clarification{
				DraftFilters: models.DraftFilter{ItemName: "배추"},
				Questions:    []models.Question{{ID: models.QuestionRecentWindow, Options: []string{"30d", "90d", "180d"}, Default: "30d"}},
			},
			RequestID: "r1",
		}, nil
	}
	if req.ClarifyAnswers[models.QuestionRecentWindow] == "999d" {
		return nil, models.NewValidationError("recent_window", "999d", "is not an offered option")
	}
	return &models.AskResponse{Type: models.ResponseResult, Narrative: "배추 가격", RequestID: "r2"}, nil
}

func (scriptedAsker) Dimensions() (models.Dimensions, error) { return models.Dimensions{}, nil }

func (scriptedAsker) Candidates(*models.CandidatesRequest) ([]dataset.Candidate, error) {
	return nil, nil
}

type frame struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type errFrame struct {
	Type    string                   `json:"type"`
	Payload []map[string]interface{} `json:"payload"`
}

func dial(t *testing.T, h *AskHandler) *websocket.Conn {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/ask", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestConversationOverWebSocket(t *testing.T) {
	conn := dial(t, NewAskHandler(xlogger.Nop(), scriptedAsker{}, nil, []string{"*"}))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"question": "요즘 배추 가격 어때?"}))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, models.ResponseClarify, f.Type)
	assert.Equal(t, "r1", f.Payload["request_id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"question":        "요즘 배추 가격 어때?",
		"draft_filters":   map[string]string{"item_name": "배추"},
		"clarify_answers": map[string]string{"recent_window": "30d"},
	}))
	f = frame{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, models.ResponseResult, f.Type)
	assert.Equal(t, "배추 가격", f.Payload["narrative"])
}

func TestWebSocketErrors(t *testing.T) {
	conn := dial(t, NewAskHandler(xlogger.Nop(), scriptedAsker{}, nil, []string{"*"}))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	var f errFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "error", f.Type)
	require.Len(t, f.Payload, 1)
	assert.Equal(t, "ERR_BIND", f.Payload[0]["code"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{}))
	f = errFrame{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "ERR_REQUIRED_WITHOUT", f.Payload[0]["code"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"question":        "배추",
		"clarify_answers": map[string]string{"recent_window": "999d"},
	}))
	f = errFrame{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "ERR_VALIDATION", f.Payload[0]["code"])
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://agri.example"})
	req := httptest.NewRequest("GET", "/ws/ask", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://agri.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
