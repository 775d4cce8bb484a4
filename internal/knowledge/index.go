package knowledge

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/careloop/careloop/internal/channel"
	"github.com/careloop/careloop/internal/shared"
	"github.com/google/uuid"
)

const (
	// DefaultTopK is how many matches a query returns.
	DefaultTopK = 3
	// SimilarityThreshold is the minimum cosine score to count as relevant.
	// Strictly greater-than: a chunk scoring exactly the threshold is out.
	SimilarityThreshold = 0.75
)

// Index is the retrieval layer over a user's health record documents. It
// chunks on ingest, embeds each chunk, and answers queries by cosine scan
// over the owner's stored embeddings.
type Index struct {
	store    *Store
	embedder channel.Embedder
	log      *slog.Logger

	window  int
	overlap int
}

func NewIndex(store *Store, embedder channel.Embedder, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{
		store:    store,
		embedder: embedder,
		log:      log.With("component", "knowledge_index"),
		window:   DefaultChunkWindow,
		overlap:  DefaultChunkOverlap,
	}
}

// AddDocument chunks and embeds the document, then commits every chunk in
// one batch. Chunk embeddings run concurrently; one embedding failure
// aborts the whole ingest and nothing is stored. Returns the number of
// chunks indexed.
func (i *Index) AddDocument(ctx context.Context, ownerID, documentID, text string) (int, error) {
	pieces := ChunkText(text, i.window, i.overlap)
	if len(pieces) == 0 {
		return 0, nil
	}

	embeddings := make([][]float32, len(pieces))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for idx, piece := range pieces {
		wg.Add(1)
		go func(idx int, piece string) {
			defer wg.Done()
			embedding, err := i.embedder.Embed(ctx, piece)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			embeddings[idx] = embedding
		}(idx, piece)
	}
	wg.Wait()
	if firstErr != nil {
		return 0, &shared.EmbeddingError{Err: firstErr}
	}

	chunks := make([]*Chunk, len(pieces))
	for idx, piece := range pieces {
		chunks[idx] = &Chunk{
			ID:         uuid.New().String(),
			OwnerID:    ownerID,
			DocumentID: documentID,
			Seq:        idx,
			Content:    piece,
			Embedding:  embeddings[idx],
		}
	}

	if err := i.store.CreateBatch(ctx, chunks); err != nil {
		return 0, err
	}

	// The relational store is the source of truth; the vector mirror is a
	// best-effort copy and its failure does not fail the ingest.
	if i.store.qdrant != nil {
		if err := i.store.UpsertEmbeddings(ctx, chunks); err != nil {
			i.log.Warn("failed to mirror embeddings", "document_id", documentID, "error", err)
		}
	}

	i.log.Info("document indexed", "document_id", documentID, "chunks", len(chunks))
	return len(chunks), nil
}

// Query embeds the query text once and scans the owner's chunks, keeping
// matches scoring strictly above the similarity threshold, best first.
func (i *Index) Query(ctx context.Context, ownerID, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}

	queryEmbedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &shared.EmbeddingError{Err: err}
	}

	chunks, err := i.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, limit)
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := Cosine(queryEmbedding, chunk.Embedding)
		if score > SimilarityThreshold {
			matches = append(matches, Match{Chunk: *chunk, Score: score})
		}
	}

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ChunkCount reports how many chunks the owner has ingested in total.
func (i *Index) ChunkCount(ctx context.Context, ownerID string) (int64, error) {
	return i.store.CountByOwner(ctx, ownerID)
}

// RemoveDocument deletes every chunk of the document. Removing a document
// that was never ingested succeeds without effect.
func (i *Index) RemoveDocument(ctx context.Context, ownerID, documentID string) error {
	ids, err := i.store.DeleteByDocument(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if i.store.qdrant != nil {
		if err := i.store.DeleteEmbeddings(ctx, ids); err != nil {
			i.log.Warn("failed to prune embedding mirror", "document_id", documentID, "error", err)
		}
	}

	i.log.Info("document removed", "document_id", documentID, "chunks", len(ids))
	return nil
}
