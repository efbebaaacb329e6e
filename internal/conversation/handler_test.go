package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medassist/internal/services"
)

type stubResponder struct {
	message string
	history []ChatMessage
	resp    ChatResponse
	panics  bool
}

func (s *stubResponder) GenerateChatResponse(_ context.Context, message string, history []ChatMessage) ChatResponse {
	if s.panics {
		panic("boom")
	}
	s.message = message
	s.history = history
	return s.resp
}

func TestHandlerChat(t *testing.T) {
	responder := &stubResponder{resp: ChatResponse{Message: "Hello there"}}
	h := NewHandler(responder, nil, nil)

	body := `{"message":"hi","messageHistory":[{"role":"assistant","content":"Welcome"}]}`
	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Hello there","service":null}`, rec.Body.String())
	assert.Equal(t, "hi", responder.message)
	assert.Equal(t, []ChatMessage{{Role: "assistant", Content: "Welcome"}}, responder.history)
}

func TestHandlerChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing message", `{"messageHistory":[]}`, "No message provided"},
		{"blank message", `{"message":"   "}`, "No message provided"},
		{"malformed", `{"message":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &stubResponder{}
			rec := httptest.NewRecorder()
			NewHandler(responder, nil, nil).Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var payload map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tt.want, payload["message"])
			assert.Empty(t, responder.message)
		})
	}
}

func TestHandlerChatPanicIsInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&stubResponder{panics: true}, nil, nil).Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandlerSearch(t *testing.T) {
	h := NewHandler(&stubResponder{}, nil, nil)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No search query provided")

	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/search?query=Diabetes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var data services.SearchData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, services.DiabetesCitations, data.Citations)
}

func TestHandlerVideos(t *testing.T) {
	h := NewHandler(&stubResponder{}, nil, nil)

	rec := httptest.NewRecorder()
	h.Videos(rec, httptest.NewRequest(http.MethodGet, "/api/videos?query=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No video search query provided")

	rec = httptest.NewRecorder()
	h.Videos(rec, httptest.NewRequest(http.MethodGet, "/api/videos?query=asthma", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list services.VideoList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Videos, 1)
	assert.Equal(t, "Understanding asthma", list.Videos[0].Title)
}
