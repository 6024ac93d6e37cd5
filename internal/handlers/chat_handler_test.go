package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localtrainer/internal/middleware"
	"localtrainer/internal/models"
	"localtrainer/internal/web"
)

// fakeChat 记录调用的对话服务
type fakeChat struct {
	mu        sync.Mutex
	messages  []models.Message
	devMode   bool
	submitted []string
	sessions  []string
	renders   int
}

func (f *fakeChat) Submit(sessionID string, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	f.submitted = append(f.submitted, text)
	return true
}

func (f *fakeChat) SetDevMode(_ string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devMode = enabled
}

func (f *fakeChat) Reset(string) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = []models.Message{models.AssistantMessage("reset")}
	return f.messages
}

func (f *fakeChat) Snapshot(string) ([]models.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages, f.devMode
}

func (f *fakeChat) Render(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
}

func newTestRouter(chat *fakeChat) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Session())
	r.SetHTMLTemplate(web.Templates())

	h := NewChatHandler(chat, nil)
	h.now = func() time.Time { return time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC) }
	h.RegisterRoutes(r)
	RegisterHealth(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIndex(t *testing.T) {
	chat := &fakeChat{
		messages: []models.Message{models.AssistantMessage("Hi <there>")},
		devMode:  true,
	}
	w := do(newTestRouter(chat), "GET", "/", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<span id="year">2031</span>`)
	assert.Contains(t, body, "Hi &lt;there&gt;")
	assert.Contains(t, body, `id="devSwitch" type="checkbox" checked`)
	assert.Contains(t, body, `text-neon-green">LocalTrainer</div>`)
}

func TestIndexDevModeOff(t *testing.T) {
	w := do(newTestRouter(&fakeChat{}), "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `type="checkbox" checked`)
}

func TestIndexKeepsEmptyInput(t *testing.T) {
	w := do(newTestRouter(&fakeChat{}), "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	// 空输入直接返回，不清空输入框
	body := w.Body.String()
	guard := strings.Index(body, "if (!text) return;")
	clear := strings.Index(body, "chatInput.value = '';")
	require.NotEqual(t, -1, guard)
	require.NotEqual(t, -1, clear)
	assert.Less(t, guard, clear)
}

func TestGetMessages(t *testing.T) {
	chat := &fakeChat{messages: []models.Message{models.UserMessage("a")}, devMode: true}
	w := do(newTestRouter(chat), "GET", "/api/messages", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[{"role":"user","text":"a"}],"dev_mode":true}`, w.Body.String())
}

func TestPostMessage(t *testing.T) {
	chat := &fakeChat{}
	r := newTestRouter(chat)

	w := do(r, "POST", "/api/messages", `{"text":"  hello "}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accepted":true}`, w.Body.String())

	w = do(r, "POST", "/api/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accepted":false}`, w.Body.String())

	w = do(r, "POST", "/api/messages", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"hello"}, chat.submitted)
	require.Len(t, chat.sessions, 2)
	assert.NotEmpty(t, chat.sessions[0])
}

func TestPutDevMode(t *testing.T) {
	chat := &fakeChat{}
	r := newTestRouter(chat)

	w := do(r, "PUT", "/api/devmode", `{"enabled":true}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, chat.devMode)

	w = do(r, "PUT", "/api/devmode", `{"enabled":false}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, chat.devMode)

	w = do(r, "PUT", "/api/devmode", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostReset(t *testing.T) {
	chat := &fakeChat{messages: []models.Message{models.UserMessage("a"), models.AssistantMessage("b")}}
	w := do(newTestRouter(chat), "POST", "/api/reset", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []models.Message{models.AssistantMessage("reset")}, resp.Messages)
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(&fakeChat{}), "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "localtrainer", resp["service"])
}
