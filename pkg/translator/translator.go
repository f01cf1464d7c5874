// Package translator is the boundary to the external inference service that
// turns a free-form query into structured search parameters. The cache never
// looks past this boundary: anything a Translator returns is validated here
// and stored opaquely.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roastlab/brewfind/pkg/models"
)

// ErrTranslationFailed wraps every upstream failure: transport errors,
// non-JSON replies, and payloads that fail validation. Results carrying this
// error are never cached.
var ErrTranslationFailed = errors.New("translation failed")

// Translator converts a query into validated search parameters.
type Translator interface {
	// TranslateText translates the original, un-normalized text query.
	TranslateText(ctx context.Context, query string) (models.SearchParams, error)
	// TranslateImage translates a raw image payload (label photo).
	TranslateImage(ctx context.Context, image []byte) (models.SearchParams, error)
	// Name identifies the provider for logging.
	Name() string
	// Model identifies the configured model for logging.
	Model() string
}

// Options configures a Translator provider.
type Options struct {
	Provider string
	URL      string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New creates a Translator by provider name. "openai" covers any
// OpenAI-compatible chat completions endpoint and is the default.
func New(opts Options) (Translator, error) {
	switch opts.Provider {
	case "", "openai":
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unknown translator provider: %s", opts.Provider)
	}
}

// parseParams extracts SearchParams from a model reply, tolerating markdown
// code fences, and enforces the schema boundary.
func parseParams(content string) (models.SearchParams, error) {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	var params models.SearchParams
	if err := json.Unmarshal([]byte(content), &params); err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: parse reply: %v", ErrTranslationFailed, err)
	}
	if err := params.Validate(); err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: invalid parameters: %v", ErrTranslationFailed, err)
	}
	return params, nil
}
