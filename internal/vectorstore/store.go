// Package vectorstore builds and persists per-session embedding
// indexes over slide text, backing retrieval for note generation and
// question answering.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/txxxxz/autonote/internal/llm"
)

const (
	embedBatchSize   = 16
	embedConcurrency = 4
)

// Document is one retrievable snippet with page attribution.
type Document struct {
	PageContent string `json:"page_content"`
	Page        int    `json:"page"`
}

// Hit is a retrieval result with its cosine similarity score.
type Hit struct {
	Document
	Score float64 `json:"score"`
}

// Index is an in-memory embedding index for one session.
type Index struct {
	docs     []Document
	vectors  [][]float32
	embedder llm.Embedder
}

// Store manages on-disk index caches under a root directory, one file
// per session.
type Store struct {
	root     string
	embedder llm.Embedder
	log      *slog.Logger
}

func NewStore(root string, embedder llm.Embedder, log *slog.Logger) *Store {
	return &Store{root: root, embedder: embedder, log: log}
}

type persistedIndex struct {
	Documents []Document  `json:"documents"`
	Vectors   [][]float32 `json:"vectors"`
}

func (s *Store) cachePath(sessionID string) string {
	return filepath.Join(s.root, sessionID+".json")
}

// LoadOrCreate returns the session's index, reusing the disk cache
// when present and embedding the documents otherwise. The cache is
// rebuilt when it does not line up with the requested documents.
func (s *Store) LoadOrCreate(ctx context.Context, sessionID string, docs []Document) (*Index, error) {
	path := s.cachePath(sessionID)
	if data, err := os.ReadFile(path); err == nil {
		var cached persistedIndex
		if err := json.Unmarshal(data, &cached); err == nil &&
			len(cached.Vectors) == len(cached.Documents) && len(cached.Documents) == len(docs) {
			s.log.Debug("vector index loaded from cache", "session_id", sessionID, "documents", len(docs))
			return &Index{docs: cached.Documents, vectors: cached.Vectors, embedder: s.embedder}, nil
		}
		s.log.Warn("vector index cache invalid, rebuilding", "session_id", sessionID)
	}

	if len(docs) == 0 {
		return nil, errors.New("vectorstore: no documents to index")
	}

	vectors, err := s.embedAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("vectorstore: create root: %w", err)
	}
	data, err := json.Marshal(persistedIndex{Documents: docs, Vectors: vectors})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: marshal index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("vectorstore: write cache: %w", err)
	}
	s.log.Info("vector index built", "session_id", sessionID, "documents", len(docs))
	return &Index{docs: docs, vectors: vectors, embedder: s.embedder}, nil
}

// Drop removes a session's cached index. Missing caches are not an
// error.
func (s *Store) Drop(sessionID string) error {
	err := os.Remove(s.cachePath(sessionID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("vectorstore: drop cache: %w", err)
	}
	return nil
}

// embedAll embeds documents in fixed-size batches with bounded
// concurrency, placing each batch's vectors at its own offset.
func (s *Store) embedAll(ctx context.Context, docs []Document) ([][]float32, error) {
	vectors := make([][]float32, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		start, end := start, end
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, d := range docs[start:end] {
				texts = append(texts, d.PageContent)
			}
			batch, err := s.embedder.Embed(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Search embeds the query and returns the top-k documents by cosine
// similarity. A non-empty pageFilter restricts candidates to those
// pages; if the filter eliminates everything, the full index is
// searched instead.
func (ix *Index) Search(ctx context.Context, query string, k int, pageFilter map[int]struct{}) ([]Hit, error) {
	if k <= 0 {
		k = 3
	}
	qv, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("vectorstore: embed query: got %d vectors", len(qv))
	}

	hits := ix.scoreAll(qv[0], pageFilter)
	if len(hits) == 0 && len(pageFilter) > 0 {
		hits = ix.scoreAll(qv[0], nil)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (ix *Index) scoreAll(query []float32, pageFilter map[int]struct{}) []Hit {
	var hits []Hit
	for i, doc := range ix.docs {
		if len(pageFilter) > 0 {
			if _, ok := pageFilter[doc.Page]; !ok {
				continue
			}
		}
		hits = append(hits, Hit{Document: doc, Score: cosine(query, ix.vectors[i])})
	}
	return hits
}

// Len reports the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
