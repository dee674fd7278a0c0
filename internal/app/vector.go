package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/devcontext-backend/internal/modules/search"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/openai"
	"github.com/yungbote/devcontext-backend/internal/platform/qdrant"
)

var (
	newQdrantVectorStore = qdrant.NewVectorStore
	newEmbedder          = func(log *logger.Logger) (openai.Embedder, error) {
		c, err := openai.NewFromEnv(log)
		if c == nil || err != nil {
			return nil, err
		}
		return c, nil
	}
)

type VectorBootstrapErrorCode string

const (
	VectorBootstrapDisabledMissingURL    VectorBootstrapErrorCode = "disabled_missing_url"
	VectorBootstrapDisabledMissingAPIKey VectorBootstrapErrorCode = "disabled_missing_api_key"
	VectorBootstrapInvalidQdrantURL      VectorBootstrapErrorCode = "invalid_qdrant_url"
	VectorBootstrapMissingVectorDim      VectorBootstrapErrorCode = "missing_qdrant_vector_dim"
	VectorBootstrapInvalidVectorDim      VectorBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorBootstrapQdrantConfigFailed    VectorBootstrapErrorCode = "qdrant_config_failed"
	VectorBootstrapEmbedderInitFailed    VectorBootstrapErrorCode = "embedder_init_failed"
	VectorBootstrapConnectFailed         VectorBootstrapErrorCode = "connect_failed"
)

type VectorBootstrapError struct {
	Code  VectorBootstrapErrorCode
	Cause error
}

func (e *VectorBootstrapError) Error() string {
	if e == nil {
		return "vector search bootstrap failed"
	}
	return fmt.Sprintf("vector search bootstrap failed (code=%s): %v", e.Code, e.Cause)
}

func (e *VectorBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Fatal reports whether the server should refuse to start. Missing
// configuration and an unreachable qdrant only disable vector search.
func (e *VectorBootstrapError) Fatal() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case VectorBootstrapInvalidQdrantURL, VectorBootstrapMissingVectorDim, VectorBootstrapInvalidVectorDim, VectorBootstrapQdrantConfigFailed:
		return true
	}
	return false
}

type vectorBackend struct {
	Searcher search.Searcher
	Store    *qdrant.VectorStore
	Embedder openai.Embedder
}

// resolveVectorBackend always returns a usable Searcher. When the backend
// cannot be built the Searcher is search.Disabled and the error says why.
func resolveVectorBackend(ctx context.Context, log *logger.Logger) (vectorBackend, error) {
	disabled := vectorBackend{Searcher: search.Instrument(log, search.Disabled())}

	if !qdrant.Enabled() {
		return disabled, &VectorBootstrapError{Code: VectorBootstrapDisabledMissingURL, Cause: errors.New("QDRANT_URL is not set")}
	}
	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		return disabled, mapQdrantConfigError(err)
	}
	embedder, err := newEmbedder(log)
	if err != nil {
		return disabled, &VectorBootstrapError{Code: VectorBootstrapEmbedderInitFailed, Cause: err}
	}
	if embedder == nil {
		return disabled, &VectorBootstrapError{Code: VectorBootstrapDisabledMissingAPIKey, Cause: errors.New("OPENAI_API_KEY is not set")}
	}
	store, err := newQdrantVectorStore(ctx, log, qcfg)
	if err != nil {
		return disabled, &VectorBootstrapError{Code: VectorBootstrapConnectFailed, Cause: err}
	}
	return vectorBackend{
		Searcher: search.Instrument(log, search.NewVectorSearcher(log, embedder, store)),
		Store:    store,
		Embedder: embedder,
	}, nil
}

func mapQdrantConfigError(err error) error {
	code := VectorBootstrapQdrantConfigFailed
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		switch qerr.Code {
		case qdrant.ConfigErrorInvalidURL:
			code = VectorBootstrapInvalidQdrantURL
		case qdrant.ConfigErrorMissingVectorDim:
			code = VectorBootstrapMissingVectorDim
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorBootstrapInvalidVectorDim
		}
	}
	return &VectorBootstrapError{Code: code, Cause: err}
}
