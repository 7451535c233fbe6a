// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	simpleChunker "github.com/spetr/codeindexer/builtin/chunking/simple"
	openaiEmbed "github.com/spetr/codeindexer/builtin/embedding/openai"
	"github.com/spetr/codeindexer/builtin/vectorstore/sqlitevec"
	"github.com/spetr/codeindexer/pkg/provider"
)

func init() {
	provider.RegisterEmbedding("openai", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return openaiEmbed.New(openaiEmbed.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.Endpoint,
			BatchSize: cfg.BatchSize,
		}), nil
	})

	provider.RegisterChunking("simple", func(cfg provider.ChunkingConfig) (provider.Chunker, error) {
		return simpleChunker.New(simpleChunker.Config{
			MaxChunkSize: cfg.MaxChunkSize,
			Overlap:      cfg.Overlap,
		}), nil
	})

	provider.RegisterVectorStore("sqlitevec", func(cfg provider.VectorStoreConfig) (provider.VectorStore, error) {
		return sqlitevec.New(cfg)
	})
}
