// Package embeddings generates text embeddings with local ONNX models.
package embeddings

import (
	"context"
	"path/filepath"

	fastembed "github.com/anush008/fastembed-go"
)

// Config holds configuration for the FastEmbed provider.
type Config struct {
	// Model is the embedding model to use, e.g. "BAAI/bge-small-en-v1.5".
	Model string

	// CacheDir is the directory where model files are cached.
	CacheDir string

	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
}

// Provider generates embeddings using a local ONNX model. Experience texts
// are embedded as passages, search queries as queries, matching the BGE
// model recommendations.
type Provider struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int
}

var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
	fastembed.AllMiniLML6V2: 384,
}

// DefaultModel is used when no model is configured.
const DefaultModel = "BAAI/bge-small-en-v1.5"

// NewProvider creates a FastEmbed provider for the configured model.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	model, ok := modelMapping[cfg.Model]
	if !ok {
		model = fastembed.EmbeddingModel(cfg.Model)
		if _, known := modelDimensions[model]; !known {
			return nil, &Error{Message: "unsupported embedding model " + cfg.Model}
		}
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 512
	}
	showProgress := false

	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, &Error{Message: "initializing FastEmbed", Cause: err}
	}

	return &Provider{
		model:     flagEmbed,
		modelName: cfg.Model,
		dimension: modelDimensions[model],
	}, nil
}

// EmbedDocuments generates passage embeddings for multiple texts.
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &Error{Message: "texts cannot be empty"}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	embeddings, err := p.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, &Error{Message: "embedding documents", Cause: err}
	}
	return embeddings, nil
}

// EmbedQuery generates a query embedding for a single text.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &Error{Message: "text cannot be empty"}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	embedding, err := p.model.QueryEmbed(text)
	if err != nil {
		return nil, &Error{Message: "embedding query", Cause: err}
	}
	return embedding, nil
}

// Dimension returns the embedding dimension of the current model.
func (p *Provider) Dimension() int {
	return p.dimension
}

// Close releases the ONNX runtime resources.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Destroy()
	}
	return nil
}

// Error wraps embedding failures.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "embeddings: " + e.Message + ": " + e.Cause.Error()
	}
	return "embeddings: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}
