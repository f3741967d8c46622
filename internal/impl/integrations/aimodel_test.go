package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedServer answers each chat completion request with the next script
// entry. An entry is either a list of SSE data payloads or an HTTP status.
type scriptedServer struct {
	mu       sync.Mutex
	t        *testing.T
	scripts  []script
	requests []map[string]any
}

type script struct {
	status int
	chunks []string
}

func newScriptedServer(t *testing.T, scripts ...script) (*scriptedServer, *httptest.Server) {
	s := &scriptedServer{t: t, scripts: scripts}
	server := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(server.Close)
	return s, server
}

func (s *scriptedServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, _ := io.ReadAll(r.Body)
	var request map[string]any
	json.Unmarshal(body, &request)
	s.requests = append(s.requests, request)
	index := len(s.requests) - 1
	s.mu.Unlock()

	assert.Equal(s.t, "/chat/completions", r.URL.Path)
	assert.Equal(s.t, "Bearer test-key", r.Header.Get("Authorization"))

	if index >= len(s.scripts) {
		index = len(s.scripts) - 1
	}
	sc := s.scripts[index]
	if sc.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(sc.status)
		fmt.Fprintf(w, `{"error":{"message":"status %d","type":"test"}}`, sc.status)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	for _, chunk := range sc.chunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (s *scriptedServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func contentChunk(content string) string {
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func reasoningChunk(reasoning string) string {
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"reasoning":%q},"finish_reason":null}]}`, reasoning)
}

func toolCallChunk(id, name, arguments string) string {
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":%q,"type":"function","function":{"name":%q,"arguments":%q}}]},"finish_reason":null}]}`, id, name, arguments)
}

func finishChunk(reason string) string {
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":%q}]}`, reason)
}

func usageChunk(prompt, completion int) string {
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":%d,"completion_tokens":%d,"total_tokens":%d}}`, prompt, completion, prompt+completion)
}

type stubTool struct {
	name   string
	result string
	err    error
	calls  []string
}

func (s *stubTool) Name() string                     { return s.name }
func (s *stubTool) Description() string              { return "stub " + s.name }
func (s *stubTool) Configuration() map[string]string { return nil }
func (s *stubTool) Parameters() []entities.Parameter {
	return []entities.Parameter{{Name: "query", Type: "string", Description: "query", Required: true}}
}
func (s *stubTool) Execute(ctx context.Context, arguments string) (string, error) {
	s.calls = append(s.calls, arguments)
	return s.result, s.err
}

func newTestIntegration(t *testing.T, url string) *AIModelIntegration {
	t.Helper()
	integration, err := NewAIModelIntegration(url, "test-key", "test-model", zap.NewNop())
	require.NoError(t, err)
	integration.retryDelay = time.Millisecond
	return integration
}

func baseMessages(question string) []*entities.Message {
	return []*entities.Message{
		entities.NewMessage(entities.RoleSystem, entities.DefaultSystemPrompt),
		entities.NewMessage(entities.RoleUser, question),
	}
}

type recorder struct {
	mu     sync.Mutex
	events []entities.StreamEvent
}

func (r *recorder) handle(ev entities.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(eventType entities.StreamEventType) []entities.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.StreamEvent
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestGenerateResponse_StreamsAnswer(t *testing.T) {
	_, server := newScriptedServer(t, script{chunks: []string{
		contentChunk("Hello"),
		contentChunk(", world"),
		finishChunk("stop"),
		usageChunk(12, 3),
	}})
	integration := newTestIntegration(t, server.URL)
	rec := &recorder{}

	messages, err := integration.GenerateResponse(context.Background(), baseMessages("hi"), nil, nil, rec.handle)
	require.NoError(t, err)

	require.Len(t, messages, 1)
	assert.Equal(t, entities.RoleAssistant, messages[0].Role)
	assert.Equal(t, "Hello, world", messages[0].Content)
	require.NotNil(t, messages[0].Usage)
	assert.Equal(t, 12, messages[0].Usage.PromptTokens)
	assert.Equal(t, 3, messages[0].Usage.CompletionTokens)
	assert.False(t, messages[0].Usage.Estimated)

	tokens := rec.ofType(entities.StreamToken)
	require.Len(t, tokens, 2)
	assert.Equal(t, "Hello", tokens[0].Content)

	usage, err := integration.GetUsage()
	require.NoError(t, err)
	assert.Equal(t, 15, usage.TotalTokens)
}

func TestGenerateResponse_ExecutesTools(t *testing.T) {
	scripted, server := newScriptedServer(t,
		script{chunks: []string{
			toolCallChunk("call_1", "wikipedia", `{"query": "Alan Turing"}`),
			finishChunk("tool_calls"),
			usageChunk(20, 5),
		}},
		script{chunks: []string{
			contentChunk("Turing was a mathematician."),
			finishChunk("stop"),
			usageChunk(40, 6),
		}},
	)
	integration := newTestIntegration(t, server.URL)
	wiki := &stubTool{name: "wikipedia", result: "Page: Alan Turing\nSummary: English mathematician."}
	rec := &recorder{}

	messages, err := integration.GenerateResponse(context.Background(), baseMessages("Who was Turing?"), []entities.Tool{wiki}, map[string]any{"temperature": 0.2}, rec.handle)
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Len(t, messages[0].ToolCalls, 1)
	assert.Equal(t, entities.RoleTool, messages[1].Role)
	assert.Equal(t, "call_1", messages[1].ToolCallID)
	assert.Equal(t, wiki.result, messages[1].Content)
	require.Len(t, messages[1].ToolCallEvents, 1)
	assert.Equal(t, "wikipedia", messages[1].ToolCallEvents[0].ToolName)
	assert.Equal(t, "Turing was a mathematician.", messages[2].Content)
	assert.Equal(t, 60, messages[2].Usage.PromptTokens)

	assert.Equal(t, []string{`{"query": "Alan Turing"}`}, wiki.calls)
	assert.Len(t, rec.ofType(entities.StreamToolStart), 1)
	ends := rec.ofType(entities.StreamToolEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, wiki.result, ends[0].Result)

	require.Equal(t, 2, scripted.requestCount())
	assert.Equal(t, 0.2, scripted.requests[0]["temperature"])
	assert.NotEmpty(t, scripted.requests[0]["tools"])
	second := scripted.requests[1]["messages"].([]any)
	require.Len(t, second, 4)
	last := second[3].(map[string]any)
	assert.Equal(t, "tool", last["role"])
	assert.Equal(t, "call_1", last["tool_call_id"])
}

func TestGenerateResponse_UnknownTool(t *testing.T) {
	_, server := newScriptedServer(t,
		script{chunks: []string{toolCallChunk("call_1", "calculator", `{"query": "2+2"}`), finishChunk("tool_calls"), usageChunk(1, 1)}},
		script{chunks: []string{contentChunk("done"), finishChunk("stop"), usageChunk(1, 1)}},
	)
	integration := newTestIntegration(t, server.URL)
	tools := []entities.Tool{
		&stubTool{name: "arxiv"},
		&stubTool{name: "wikipedia"},
		&stubTool{name: "duckDuckGoSearch"},
	}
	rec := &recorder{}

	messages, err := integration.GenerateResponse(context.Background(), baseMessages("2+2?"), tools, nil, rec.handle)
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Equal(t, "calculator is not a valid tool, try one of [arxiv, wikipedia, duckDuckGoSearch].", messages[1].Content)
	assert.Len(t, rec.ofType(entities.StreamToolError), 1)
}

func TestGenerateResponse_RepairsArguments(t *testing.T) {
	_, server := newScriptedServer(t,
		script{chunks: []string{toolCallChunk("call_1", "arxiv", `{"query": "graph neural networks"`), finishChunk("tool_calls"), usageChunk(1, 1)}},
		script{chunks: []string{contentChunk("ok"), finishChunk("stop"), usageChunk(1, 1)}},
	)
	integration := newTestIntegration(t, server.URL)
	arxiv := &stubTool{name: "arxiv", result: "Published: 2020-01-01"}

	_, err := integration.GenerateResponse(context.Background(), baseMessages("gnn"), []entities.Tool{arxiv}, nil, nil)
	require.NoError(t, err)

	require.Len(t, arxiv.calls, 1)
	var args map[string]string
	require.NoError(t, json.Unmarshal([]byte(arxiv.calls[0]), &args))
	assert.Equal(t, "graph neural networks", args["query"])
}

func TestGenerateResponse_IterationLimit(t *testing.T) {
	scripted, server := newScriptedServer(t,
		script{chunks: []string{toolCallChunk("call_1", "wikipedia", `{"query": "loop"}`), finishChunk("tool_calls"), usageChunk(1, 1)}},
	)
	integration := newTestIntegration(t, server.URL)
	wiki := &stubTool{name: "wikipedia", result: "again"}

	messages, err := integration.GenerateResponse(context.Background(), baseMessages("loop"), []entities.Tool{wiki}, map[string]any{"max_iterations": 2}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, scripted.requestCount())
	assert.Equal(t, IterationLimitMessage, messages[len(messages)-1].Content)
	assert.Len(t, wiki.calls, 2)
}

func TestGenerateResponse_FinishReasons(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"length", "partial\n\n[Response truncated due to length limit]"},
		{"content_filter", "partial\n\n[Response filtered by content policy]"},
		{"stop", "partial"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			_, server := newScriptedServer(t, script{chunks: []string{contentChunk("partial"), finishChunk(tt.reason), usageChunk(1, 1)}})
			integration := newTestIntegration(t, server.URL)

			messages, err := integration.GenerateResponse(context.Background(), baseMessages("q"), nil, nil, nil)
			require.NoError(t, err)
			require.Len(t, messages, 1)
			assert.Equal(t, tt.want, messages[0].Content)
		})
	}
}

func TestGenerateResponse_RetriesRateLimit(t *testing.T) {
	scripted, server := newScriptedServer(t,
		script{status: http.StatusTooManyRequests},
		script{chunks: []string{contentChunk("after retry"), finishChunk("stop"), usageChunk(1, 1)}},
	)
	integration := newTestIntegration(t, server.URL)

	messages, err := integration.GenerateResponse(context.Background(), baseMessages("q"), nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, scripted.requestCount())
	assert.Equal(t, "after retry", messages[0].Content)
}

func TestGenerateResponse_GivesUpAfterRetries(t *testing.T) {
	scripted, server := newScriptedServer(t, script{status: http.StatusServiceUnavailable})
	integration := newTestIntegration(t, server.URL)

	_, err := integration.GenerateResponse(context.Background(), baseMessages("q"), nil, nil, nil)
	assert.Error(t, err)
	assert.Equal(t, maxAttempts, scripted.requestCount())
}

func TestGenerateResponse_Unauthorized(t *testing.T) {
	scripted, server := newScriptedServer(t, script{status: http.StatusUnauthorized})
	integration := newTestIntegration(t, server.URL)

	_, err := integration.GenerateResponse(context.Background(), baseMessages("q"), nil, nil, nil)
	assert.True(t, errs.IsUnauthorized(err))
	assert.Equal(t, 1, scripted.requestCount())
}

func TestGenerateResponse_ReasoningWrappedInThink(t *testing.T) {
	_, server := newScriptedServer(t, script{chunks: []string{
		reasoningChunk("Let me think."),
		contentChunk("Answer."),
		finishChunk("stop"),
		usageChunk(1, 1),
	}})
	integration := newTestIntegration(t, server.URL)

	messages, err := integration.GenerateResponse(context.Background(), baseMessages("q"), nil, nil, nil)
	require.NoError(t, err)

	reasoning, answer := entities.SplitReasoning(messages[0].Content)
	assert.Equal(t, "Let me think.", reasoning)
	assert.Equal(t, "Answer.", answer)
}

func TestGenerateResponse_CanceledBeforeStart(t *testing.T) {
	_, server := newScriptedServer(t, script{chunks: []string{contentChunk("never")}})
	integration := newTestIntegration(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	messages, err := integration.GenerateResponse(ctx, baseMessages("q"), nil, nil, nil)
	assert.True(t, errs.IsCanceled(err))
	require.Len(t, messages, 1)
	assert.Equal(t, entities.RoleAssistant, messages[0].Role)
	assert.Equal(t, CanceledNote, messages[0].Content)
}

// stallingServer sends chunks and then holds the stream open until the
// client goes away.
func stallingServer(t *testing.T, chunks ...string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateResponse_CanceledMidStream(t *testing.T) {
	server := stallingServer(t, contentChunk("Paris is"))
	integration := newTestIntegration(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	handler := func(ev entities.StreamEvent) {
		rec.handle(ev)
		if ev.Type == entities.StreamToken {
			cancel()
		}
	}

	messages, err := integration.GenerateResponse(ctx, baseMessages("capital of France?"), nil, nil, handler)
	assert.True(t, errs.IsCanceled(err))
	require.Len(t, messages, 1)
	assert.Equal(t, entities.RoleAssistant, messages[0].Role)
	assert.Equal(t, "Paris is\n\n"+CanceledNote, messages[0].Content)
	assert.NotNil(t, messages[0].Usage)
	assert.Len(t, rec.ofType(entities.StreamToken), 1)
}

// cancelingTool stops the run while it executes.
type cancelingTool struct {
	stubTool
	cancel context.CancelFunc
}

func (c *cancelingTool) Execute(ctx context.Context, arguments string) (string, error) {
	c.calls = append(c.calls, arguments)
	c.cancel()
	return "", ctx.Err()
}

func TestGenerateResponse_CanceledDuringTool(t *testing.T) {
	scripted, server := newScriptedServer(t,
		script{chunks: []string{
			contentChunk("Let me look that up."),
			toolCallChunk("call_1", "wikipedia", `{"query": "Paris"}`),
			finishChunk("tool_calls"),
			usageChunk(10, 4),
		}},
		script{chunks: []string{contentChunk("never"), finishChunk("stop")}},
	)
	integration := newTestIntegration(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wiki := &cancelingTool{stubTool: stubTool{name: "wikipedia"}, cancel: cancel}

	messages, err := integration.GenerateResponse(ctx, baseMessages("Paris?"), []entities.Tool{wiki}, nil, nil)
	assert.True(t, errs.IsCanceled(err))
	assert.Equal(t, 1, scripted.requestCount())
	assert.Len(t, wiki.calls, 1)

	require.Len(t, messages, 3)
	assert.Len(t, messages[0].ToolCalls, 1)
	assert.Equal(t, entities.RoleTool, messages[1].Role)
	assert.Equal(t, "call_1", messages[1].ToolCallID)

	last := messages[2]
	assert.Equal(t, entities.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)
	assert.Equal(t, "Let me look that up.\n\n"+CanceledNote, last.Content)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 10, last.Usage.PromptTokens)
}

func TestEnsureToolCallResponses(t *testing.T) {
	assistant := entities.NewMessage(entities.RoleAssistant, "")
	assistant.ToolCalls = []entities.ToolCall{{ID: "a"}, {ID: "b"}}
	answered := entities.NewMessage(entities.RoleTool, "result")
	answered.ToolCallID = "a"

	messages := ensureToolCallResponses([]*entities.Message{assistant, answered}, zap.NewNop())

	require.Len(t, messages, 3)
	assert.Equal(t, "b", messages[2].ToolCallID)
	assert.True(t, strings.HasPrefix(messages[2].Content, "Tool execution failed"))
}

func TestRepairArguments(t *testing.T) {
	got, err := repairArguments("")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = repairArguments(`{"query": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"query": "ok"}`, got)

	got, err = repairArguments(`{'query': 'single quotes'}`)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(got)))
}
