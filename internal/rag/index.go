package rag

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

type Document struct {
	ID        string
	Text      string
	Embedding []float64
}

type Hit struct {
	Document Document
	Distance float64
}

// Index is an exact (brute force) L2 index over fixed-dimension vectors.
type Index struct {
	mu   sync.RWMutex
	dim  int
	docs []Document
}

func NewIndex(dim int) *Index {
	return &Index{dim: dim}
}

func (ix *Index) Dim() int { return ix.dim }

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

func (ix *Index) Add(docs ...Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, d := range docs {
		if len(d.Embedding) != ix.dim {
			return fmt.Errorf("document %q: dimension %d, index expects %d", d.ID, len(d.Embedding), ix.dim)
		}
	}
	ix.docs = append(ix.docs, docs...)
	return nil
}

// Search returns up to k documents ordered by ascending L2 distance.
func (ix *Index) Search(vec []float64, k int) ([]Hit, error) {
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(vec), ix.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	hits := make([]Hit, len(ix.docs))
	for i, d := range ix.docs {
		hits[i] = Hit{Document: d, Distance: floats.Distance(vec, d.Embedding, 2)}
	}
	ix.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
