package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
	"github.com/drujensen/researchagent/internal/domain/services"
	"github.com/drujensen/researchagent/internal/impl/repositories"
	repositoriesMemory "github.com/drujensen/researchagent/internal/impl/repositories/memory"
	uicontrollers "github.com/drujensen/researchagent/internal/ui/controllers"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTool struct {
	name string
}

func (t *stubTool) Name() string                     { return t.name }
func (t *stubTool) Description() string              { return "stub " + t.name }
func (t *stubTool) Configuration() map[string]string { return nil }
func (t *stubTool) Parameters() []entities.Parameter { return nil }
func (t *stubTool) Execute(ctx context.Context, arguments string) (string, error) {
	return "ok", nil
}

// scriptedIntegration answers every message with a fixed reply.
type scriptedIntegration struct {
	reply string
}

func (s *scriptedIntegration) GenerateResponse(ctx context.Context, messages []*entities.Message, toolList []entities.Tool, options map[string]any, handler entities.StreamHandler) ([]*entities.Message, error) {
	handler.Emit(entities.StreamEvent{Type: entities.StreamToken, Content: s.reply})
	answer := entities.NewMessage(entities.RoleAssistant, s.reply)
	answer.Usage = &entities.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	return []*entities.Message{answer}, nil
}

func (s *scriptedIntegration) GetUsage() (*entities.Usage, error)  { return nil, nil }
func (s *scriptedIntegration) ModelName() string                   { return "test-model" }
func (s *scriptedIntegration) ProviderType() entities.ProviderType { return entities.ProviderGeneric }

type scriptedFactory struct {
	reply string
	keys  []string
}

func (f *scriptedFactory) CreateModelIntegration(agent *entities.Agent, apiKey string) (interfaces.AIModelIntegration, error) {
	f.keys = append(f.keys, apiKey)
	return &scriptedIntegration{reply: f.reply}, nil
}

func newTestRouter(t *testing.T, defaultKey string) (*echo.Echo, *scriptedFactory) {
	t.Helper()
	logger := zap.NewNop()

	toolRepo, err := repositories.NewToolRepository()
	require.NoError(t, err)
	for _, name := range []string{"arxiv", "wikipedia", "duckDuckGoSearch"} {
		require.NoError(t, toolRepo.RegisterTool(&stubTool{name: name}))
	}

	factory := &scriptedFactory{reply: "It is **Paris**."}
	agent := entities.NewAgent("Research Agent", entities.ProviderGroq, "", "test-model", "", []string{"arxiv", "wikipedia", "duckDuckGoSearch"})

	sessionService := services.NewSessionService(repositoriesMemory.NewMemorySessionRepository(), logger)
	agentService := services.NewAgentService(agent, toolRepo, logger)
	chatService := services.NewChatService(repositoriesMemory.NewMemoryChatRepository(), agentService, factory, 0, logger)
	toolService := services.NewToolService(toolRepo)

	e, err := NewUI(sessionService, chatService, agentService, toolService, defaultKey, logger).Router()
	require.NoError(t, err)
	return e, factory
}

func serve(e *echo.Echo, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == uicontrollers.SessionCookieName {
			return cookie
		}
	}
	t.Fatalf("no %s cookie set", uicontrollers.SessionCookieName)
	return nil
}

// signIn passes the key gate and follows the redirect to the active chat.
func signIn(t *testing.T, e *echo.Echo, key string) (*http.Cookie, string) {
	t.Helper()
	rec := serve(e, http.MethodPost, "/session", url.Values{"api_key": {key}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	rec = serve(e, http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get(echo.HeaderLocation)
	require.True(t, strings.HasPrefix(location, "/chats/"))
	return cookie, location
}

func TestHome_ShowsKeyForm(t *testing.T) {
	e, _ := newTestRouter(t, "")

	rec := serve(e, http.MethodGet, "/", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "🔑 Enter your Groq API Key")
	assert.Contains(t, body, "Paste your Groq API key:")
	assert.Contains(t, body, `type="password"`)
	assert.NotContains(t, body, "⚠️")
}

func TestSession_RejectsEmptyKey(t *testing.T) {
	e, _ := newTestRouter(t, "")

	rec := serve(e, http.MethodPost, "/session", url.Values{"api_key": {"   "}}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "⚠️ Please enter a valid API key.")
	assert.Empty(t, rec.Result().Cookies())
}

func TestChatPage(t *testing.T) {
	e, _ := newTestRouter(t, "")
	cookie, location := signIn(t, e, "gsk_secret_key_9876")

	rec := serve(e, http.MethodGet, location, nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "🤖 LangChain Agent Chatbot with Tools")
	assert.Contains(t, body, "<strong>Wikipedia</strong>")
	assert.Contains(t, body, "<strong>DuckDuckGoSearch</strong>")
	assert.Contains(t, body, `placeholder="Type your message..."`)
	assert.Contains(t, body, "9876")
	assert.NotContains(t, body, "gsk_secret_key_9876")

	again, secondLocation := signIn(t, e, "gsk_other")
	assert.NotEqual(t, location, secondLocation)
	rec = serve(e, http.MethodGet, location, nil, again)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestChatPage_RequiresSession(t *testing.T) {
	e, _ := newTestRouter(t, "")

	rec := serve(e, http.MethodGet, "/chats/anything", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = serve(e, http.MethodGet, "/ws/chats/anything", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDefaultKeySkipsGate(t *testing.T) {
	e, factory := newTestRouter(t, "gsk_server_default")

	rec := serve(e, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	cookie := sessionCookie(t, rec)
	location := rec.Header().Get(echo.HeaderLocation)

	rec = serve(e, http.MethodPost, location+"/messages", url.Values{"message": {"hi"}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"gsk_server_default"}, factory.keys)
}

func TestSendMessage_Fallback(t *testing.T) {
	e, factory := newTestRouter(t, "")
	cookie, location := signIn(t, e, "gsk_user")

	rec := serve(e, http.MethodPost, location+"/messages", url.Values{"message": {"Capital of France?"}}, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Capital of France?")
	assert.Contains(t, body, "<strong>Paris</strong>")
	assert.Equal(t, []string{"gsk_user"}, factory.keys)

	rec = serve(e, http.MethodPost, location+"/messages", url.Values{"message": {"  "}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodGet, location, nil, cookie)
	assert.Contains(t, rec.Body.String(), "Capital of France?")
	assert.Contains(t, rec.Body.String(), "Tokens: 15")
}

func TestNewAndDeleteChat(t *testing.T) {
	e, _ := newTestRouter(t, "")
	cookie, location := signIn(t, e, "gsk_user")

	rec := serve(e, http.MethodPost, "/chats", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	newLocation := rec.Header().Get(echo.HeaderLocation)
	assert.NotEqual(t, location, newLocation)

	rec = serve(e, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, newLocation, rec.Header().Get(echo.HeaderLocation))

	rec = serve(e, http.MethodPost, newLocation+"/delete", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = serve(e, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, location, rec.Header().Get(echo.HeaderLocation))
}

func TestDeleteSession(t *testing.T) {
	e, _ := newTestRouter(t, "")
	cookie, _ := signIn(t, e, "gsk_user")

	rec := serve(e, http.MethodPost, "/session/delete", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = serve(e, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Paste your Groq API key:")
}

func TestWebSocketStreamsRun(t *testing.T) {
	e, _ := newTestRouter(t, "")
	cookie, location := signIn(t, e, "gsk_user")

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + location
	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "Capital of France?"}))

	var types []entities.StreamEventType
	var finalHTML string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame struct {
			entities.StreamEvent
			HTML string `json:"html"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == uicontrollers.HistoryFrame {
			continue
		}
		types = append(types, frame.Type)
		if frame.Type == entities.StreamFinal {
			finalHTML = frame.HTML
		}
		if frame.Type == entities.StreamDone {
			break
		}
	}

	assert.Equal(t, []entities.StreamEventType{entities.StreamToken, entities.StreamFinal, entities.StreamDone}, types)
	assert.Contains(t, finalHTML, "<strong>Paris</strong>")
}

func TestStaticFiles(t *testing.T) {
	e, _ := newTestRouter(t, "")

	rec := serve(e, http.MethodGet, "/static/app.js", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WebSocket")

	rec = serve(e, http.MethodGet, "/static/missing.js", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwaggerDoc(t *testing.T) {
	e, _ := newTestRouter(t, "")

	rec := serve(e, http.MethodGet, "/swagger/doc.json", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/chats/{id}/messages"`)
	assert.Contains(t, rec.Body.String(), `"BearerAuth"`)
}

func TestWebSocketSharesHistoryWithOtherViews(t *testing.T) {
	e, _ := newTestRouter(t, "")
	cookie, location := signIn(t, e, "gsk_user")

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + location
	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)

	sender, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer sender.Close()

	watcher, resp2, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer resp2.Body.Close()
	defer watcher.Close()

	require.NoError(t, sender.WriteJSON(map[string]string{"message": "Capital of France?"}))

	var historyHTML string
	require.NoError(t, watcher.SetReadDeadline(time.Now().Add(5*time.Second)))
	for historyHTML == "" {
		var frame struct {
			entities.StreamEvent
			HTML string `json:"html"`
		}
		require.NoError(t, watcher.ReadJSON(&frame))
		if frame.Type == uicontrollers.HistoryFrame {
			historyHTML = frame.HTML
		}
	}

	assert.Contains(t, historyHTML, "message user")
	assert.Contains(t, historyHTML, "Capital of France?")
}
