package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	require.Equal(t,
		"sys\nContext: a b\nQuestion: why?\nAnswer:",
		BuildPrompt("sys", "a b", "why?"))
	require.Equal(t,
		"Context: \nQuestion: q\nAnswer:",
		BuildPrompt("", "", "q"))
}

func TestLlamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/completion", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Question: hi", req.Prompt)
		require.Equal(t, 0.7, req.Temperature)
		require.Equal(t, 80, req.NPredict)
		require.Equal(t, 80, req.MaxTokens)

		json.NewEncoder(w).Encode(completionResponse{Content: "  Hello there.\n"})
	}))
	defer server.Close()

	l := NewLlama(server.URL+"/", Params{Temperature: 0.7, MaxTokens: 80}, server.Client())
	out, err := l.Complete(context.Background(), "Question: hi")
	require.NoError(t, err)
	require.Equal(t, "Hello there.", out)
}

func TestLlamaCompleteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewLlama(server.URL, Params{}, nil).Complete(context.Background(), "x")
	require.ErrorContains(t, err, "503")
	require.ErrorContains(t, err, "model loading")
}

func TestLlamaCompleteEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":"   "}`))
	}))
	defer server.Close()

	_, err := NewLlama(server.URL, Params{}, nil).Complete(context.Background(), "x")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "tinyllama", req["model"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		require.Equal(t, "system", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "tinyllama",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": " Sure. "}}]
		}`))
	}))
	defer server.Close()

	o := NewOpenAI(server.URL+"/v1", "local", "tinyllama", "be brief", Params{Temperature: 0.7, MaxTokens: 80}, server.Client())
	out, err := o.Complete(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "Sure.", out)
}
