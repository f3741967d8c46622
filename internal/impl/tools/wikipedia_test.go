package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWikipediaServer(t *testing.T, searchBody, pageBody string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/w/api.php", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("list") == "search" {
			w.Write([]byte(searchBody))
			return
		}
		assert.Equal(t, "1", r.URL.Query().Get("redirects"))
		w.Write([]byte(pageBody))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWikipediaTool_Execute(t *testing.T) {
	server := newWikipediaServer(t,
		`{"query":{"search":[{"title":"Alan Turing"}]}}`,
		`{"query":{"pages":{"1208":{"title":"Alan Turing","extract":"Alan Mathison Turing was an English mathematician."}}}}`)

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{
		"base_url":              server.URL,
		"doc_content_chars_max": "250",
	}, zap.NewNop())

	result, err := tool.Execute(context.Background(), `{"query": "Alan Turing"}`)
	require.NoError(t, err)
	assert.Equal(t, "Page: Alan Turing\nSummary: Alan Mathison Turing was an English mathematician.", result)
}

func TestWikipediaTool_Truncates(t *testing.T) {
	server := newWikipediaServer(t,
		`{"query":{"search":[{"title":"Go"}]}}`,
		`{"query":{"pages":{"1":{"title":"Go","extract":"Go is a statically typed compiled language."}}}}`)

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{
		"base_url":              server.URL,
		"doc_content_chars_max": "20",
	}, zap.NewNop())

	result, err := tool.Execute(context.Background(), `{"query": "golang"}`)
	require.NoError(t, err)
	assert.Equal(t, "Page: Go\nSummary: Go", result)
}

func TestWikipediaTool_NoResult(t *testing.T) {
	server := newWikipediaServer(t, `{"query":{"search":[]}}`, `{}`)

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{"base_url": server.URL}, zap.NewNop())

	result, err := tool.Execute(context.Background(), `{"query": "zzzzqqq"}`)
	require.NoError(t, err)
	assert.Equal(t, noWikipediaResult, result)
}

func TestWikipediaTool_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{"base_url": server.URL}, zap.NewNop())

	_, err := tool.Execute(context.Background(), `{"query": "anything"}`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestWikipediaTool_MissingQuery(t *testing.T) {
	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{}, zap.NewNop())

	_, err := tool.Execute(context.Background(), `{}`)
	assert.Error(t, err)
}

func TestWikipediaTool_SkipsFailedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Query().Get("list") == "search":
			w.Write([]byte(`{"query":{"search":[{"title":"Broken"},{"title":"Alan Turing"}]}}`))
		case r.URL.Query().Get("titles") == "Broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"query":{"pages":{"1208":{"title":"Alan Turing","extract":"English mathematician."}}}}`))
		}
	}))
	defer server.Close()

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{
		"base_url":      server.URL,
		"top_k_results": "2",
	}, zap.NewNop())

	result, err := tool.Execute(context.Background(), `{"query": "turing"}`)
	require.NoError(t, err)
	assert.Equal(t, "Page: Alan Turing\nSummary: English mathematician.", result)
}

func TestWikipediaTool_AllPagesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list") == "search" {
			w.Write([]byte(`{"query":{"search":[{"title":"Broken"}]}}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{"base_url": server.URL}, zap.NewNop())

	result, err := tool.Execute(context.Background(), `{"query": "broken"}`)
	require.NoError(t, err)
	assert.Equal(t, noWikipediaResult, result)
}

func TestWikipediaTool_Defaults(t *testing.T) {
	extract := strings.Repeat("a", 400)
	var srlimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list") == "search" {
			srlimit = r.URL.Query().Get("srlimit")
			w.Write([]byte(`{"query":{"search":[{"title":"Long"}]}}`))
			return
		}
		w.Write([]byte(`{"query":{"pages":{"1":{"title":"Long","extract":"` + extract + `"}}}}`))
	}))
	defer server.Close()

	tool := NewWikipediaTool(WikipediaToolName, "test", map[string]string{"base_url": server.URL}, zap.NewNop())

	result, err := tool.Execute(context.Background(), `{"query": "long"}`)
	require.NoError(t, err)
	assert.Equal(t, "1", srlimit)
	assert.Equal(t, 250, utf8.RuneCountInString(result))
}
