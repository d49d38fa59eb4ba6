// Package search indexes completed messages in a chromem-go collection
// so sessions can be found by meaning, not just by title.
package search

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/parleychat/parley/pkg/chat"
)

const collectionName = "messages"

// Result is one message hit with the session it belongs to.
type Result struct {
	SessionID  string
	MessageID  string
	Role       string
	Content    string
	Similarity float32
}

// Index stores message embeddings, persistently when dir is non-empty.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// New opens (or creates) the index. embed may be nil, in which case
// chromem's default embedder is used; callers normally pass
// OllamaEmbedder or, in tests, a local deterministic one.
func New(dir string, embed chromem.EmbeddingFunc) (*Index, error) {
	var db *chromem.DB
	var err error

	if dir != "" {
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open search index: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open search collection: %w", err)
	}

	return &Index{db: db, collection: collection}, nil
}

// OllamaEmbedder returns an embedding function backed by a local Ollama
// instance.
func OllamaEmbedder(model, baseURL string) chromem.EmbeddingFunc {
	return chromem.NewEmbeddingFuncOllama(model, baseURL+"/api")
}

// Add indexes one completed message. Streaming-in-progress messages are
// not indexed; callers add them once the stream finishes.
func (ix *Index) Add(ctx context.Context, sessionID string, msg chat.Message) error {
	if msg.IsEmpty() {
		return nil
	}

	doc := chromem.Document{
		ID:      msg.ID,
		Content: msg.Content,
		Metadata: map[string]string{
			"session_id": sessionID,
			"role":       msg.Role,
		},
	}

	if err := ix.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to index message: %w", err)
	}
	return nil
}

// Query returns up to k messages closest to the query text.
func (ix *Index) Query(ctx context.Context, query string, k int) ([]Result, error) {
	if count := ix.collection.Count(); count < k {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	hits, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			SessionID:  hit.Metadata["session_id"],
			MessageID:  hit.ID,
			Role:       hit.Metadata["role"],
			Content:    hit.Content,
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}
