package rag

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/google/uuid"
)

// DefaultDocuments seed the assistant's knowledge base.
var DefaultDocuments = []string{
	"I am you personal AI assistant",
	"Feel free to ask me anything about AI development",
	"I don't need internet connection.",
}

// Retriever embeds documents into an Index and answers nearest-neighbour
// queries over them. The store is optional.
type Retriever struct {
	embedder Embedder
	index    *Index
	store    *SQLiteStore
	topK     int
}

func NewRetriever(embedder Embedder, index *Index, store *SQLiteStore, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: embedder, index: index, store: store, topK: topK}
}

// Restore loads previously stored documents into the index.
func (r *Retriever) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	docs, err := r.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.index.Add(docs...); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// AddDocuments embeds texts not already stored and adds them to the index.
// Repeats within texts are indexed once.
func (r *Retriever) AddDocuments(ctx context.Context, texts ...string) error {
	var fresh []string
	seen := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if r.store != nil {
			ok, err := r.store.Has(ctx, t)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
		}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return nil
	}

	vecs, err := r.embedder.Embed(ctx, fresh)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	docs := make([]Document, len(fresh))
	for i, t := range fresh {
		docs[i] = Document{ID: uuid.NewString(), Text: t, Embedding: vecs[i]}
	}
	if err := r.index.Add(docs...); err != nil {
		return err
	}
	if r.store != nil {
		if err := r.store.Save(ctx, docs...); err != nil {
			return err
		}
	}

	log.Debug("Indexed documents", "count", len(docs), "total", r.index.Len())
	return nil
}

func (r *Retriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	if r.index.Len() == 0 {
		return nil, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}

	hits, err := r.index.Search(vecs[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Document.Text
	}
	return out, nil
}

// Context returns the top-k documents for query joined by spaces.
func (r *Retriever) Context(ctx context.Context, query string) (string, error) {
	docs, err := r.Search(ctx, query, r.topK)
	if err != nil {
		return "", err
	}
	return strings.Join(docs, " "), nil
}
