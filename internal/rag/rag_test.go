package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordEmbedder scores each text on a fixed vocabulary.
type wordEmbedder struct {
	vocab []string
	calls int
}

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, len(e.vocab))
		lower := strings.ToLower(t)
		for j, w := range e.vocab {
			if strings.Contains(lower, w) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func TestIndexSearchOrder(t *testing.T) {
	ix := NewIndex(2)
	require.NoError(t, ix.Add(
		Document{ID: "far", Embedding: []float64{10, 10}},
		Document{ID: "near", Embedding: []float64{1, 0}},
		Document{ID: "mid", Embedding: []float64{3, 0}},
	))

	hits, err := ix.Search([]float64{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "near", hits[0].Document.ID)
	require.Equal(t, "mid", hits[1].Document.ID)
	require.InDelta(t, 1.0, hits[0].Distance, 1e-9)

	hits, err = ix.Search([]float64{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
}

func TestIndexDimensionMismatch(t *testing.T) {
	ix := NewIndex(3)
	require.Error(t, ix.Add(Document{ID: "x", Embedding: []float64{1}}))
	require.Equal(t, 0, ix.Len())

	_, err := ix.Search([]float64{1, 2}, 1)
	require.Error(t, err)
}

func TestRetrieverContext(t *testing.T) {
	emb := &wordEmbedder{vocab: []string{"assistant", "ai", "internet", "weather"}}
	r := NewRetriever(emb, NewIndex(4), nil, 2)

	ctx := context.Background()
	require.NoError(t, r.AddDocuments(ctx, DefaultDocuments...))

	docs, err := r.Search(ctx, "do you need internet", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"I don't need internet connection."}, docs)

	got, err := r.Context(ctx, "internet")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "I don't need internet connection. "))
}

func TestRetrieverEmptyIndex(t *testing.T) {
	emb := &wordEmbedder{vocab: []string{"a"}}
	r := NewRetriever(emb, NewIndex(1), nil, 3)

	got, err := r.Context(context.Background(), "anything")
	require.NoError(t, err)
	require.Empty(t, got)
	require.Zero(t, emb.calls)
}

func TestAddDocumentsSkipsRepeatsInBatch(t *testing.T) {
	ctx := context.Background()
	batch := []string{"I am an AI assistant.", "I am an AI assistant.", "  I am an AI assistant. ", "No internet."}

	emb := &wordEmbedder{vocab: []string{"assistant", "internet"}}
	r := NewRetriever(emb, NewIndex(2), nil, 3)
	require.NoError(t, r.AddDocuments(ctx, batch...))
	require.Equal(t, 2, r.index.Len())

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	defer store.Close()

	r = NewRetriever(emb, NewIndex(2), store, 3)
	require.NoError(t, r.AddDocuments(ctx, batch...))
	docs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestSQLiteStoreRestore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rag", "docs.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)

	emb := &wordEmbedder{vocab: []string{"assistant", "ai", "internet"}}
	r := NewRetriever(emb, NewIndex(3), store, 3)
	require.NoError(t, r.AddDocuments(ctx, DefaultDocuments...))
	require.Equal(t, 1, emb.calls)

	// Already stored texts are not embedded again.
	require.NoError(t, r.AddDocuments(ctx, DefaultDocuments...))
	require.Equal(t, 1, emb.calls)
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	restored := NewRetriever(emb, NewIndex(3), store, 3)
	n, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, len(DefaultDocuments), n)

	docs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, DefaultDocuments[0], docs[0].Text)
	require.Equal(t, []float64{1, 1, 0}, docs[0].Embedding)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "all-minilm", req.Model)
		require.Len(t, req.Input, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "all-minilm",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.5, 0.5]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1", "test", "all-minilm", srv.Client())
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 0}, {0.5, 0.5}}, vecs)
}
