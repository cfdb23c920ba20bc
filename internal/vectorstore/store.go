// Package vectorstore provides the vector-similarity backend used to store
// and retrieve experiences.
package vectorstore

import (
	"context"

	"github.com/jonathan/experience-matcher/internal/types"
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds experience texts for indexing.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is one similarity hit returned by NearText. Score is a normalized
// similarity in [0,1], higher meaning more similar.
type Result struct {
	Experience types.Experience
	Score      float64
}

// SearchOptions narrows a NearText call.
type SearchOptions struct {
	// Company restricts hits to experiences at the given company.
	Company string
	// ScoreThreshold drops hits below the given raw similarity.
	ScoreThreshold float64
}

// Store is the backend contract consumed by the matching pipeline. Close
// must be called on every exit path once a store is opened.
type Store interface {
	// NearText runs a semantic similarity search for the query text.
	NearText(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error)
	// AddExperience indexes an experience and returns its id.
	AddExperience(ctx context.Context, exp *types.Experience) (string, error)
	// GetExperience fetches one experience by id; nil when absent.
	GetExperience(ctx context.Context, id string) (*types.Experience, error)
	// ListExperiences returns up to limit stored experiences.
	ListExperiences(ctx context.Context, limit int) ([]types.Experience, error)
	// DeleteExperience removes an experience by id.
	DeleteExperience(ctx context.Context, id string) error
	// Close releases the backend connection.
	Close() error
}

// Error wraps backend failures with the operation that produced them.
type Error struct {
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := "vectorstore: " + e.Op + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}
