// Package resolver implements the cache-aside flow: fingerprint the query,
// serve a cached translation when one is live, otherwise call the external
// translator exactly once per fingerprint and write the result through.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/roastlab/brewfind/pkg/budget"
	"github.com/roastlab/brewfind/pkg/fingerprint"
	"github.com/roastlab/brewfind/pkg/models"
	"github.com/roastlab/brewfind/pkg/translator"
	"github.com/roastlab/brewfind/pkg/translog"
)

// Store is the slice of the entry store the resolver needs.
type Store interface {
	Get(ctx context.Context, fp string) (models.CacheEntry, bool, error)
	Put(ctx context.Context, fp string, kind models.QueryKind, originalText string, payload []byte, ttl time.Duration) error
}

// Result is a resolved translation.
type Result struct {
	Params      models.SearchParams `json:"params"`
	Cached      bool                `json:"cached"`
	Fingerprint string              `json:"fingerprint"`
}

// Options tunes optional resolver behavior.
type Options struct {
	// TTL for freshly written entries; the store default applies when zero.
	TTL time.Duration
	// Budget optionally caps daily translator calls.
	Budget *budget.Enforcer
	// Log optionally records translator invocations.
	Log *translog.Logger
}

// Resolver coordinates the fingerprinter, entry store, and translator.
type Resolver struct {
	store  Store
	tr     translator.Translator
	budget *budget.Enforcer
	tlog   *translog.Logger
	ttl    time.Duration
	logger zerolog.Logger
	group  singleflight.Group
}

// New creates a Resolver. A nil store disables caching: every query goes to
// the translator (still coalesced per fingerprint).
func New(store Store, tr translator.Translator, logger zerolog.Logger, opts Options) *Resolver {
	return &Resolver{
		store:  store,
		tr:     tr,
		budget: opts.Budget,
		tlog:   opts.Log,
		ttl:    opts.TTL,
		logger: logger,
	}
}

// Resolve returns the structured parameters for a query, from cache when
// possible. Concurrent misses on the same fingerprint share one translator
// call. Storage failures on the read path degrade to a miss; failures on
// the write path and all translator failures surface to the caller.
func (r *Resolver) Resolve(ctx context.Context, q models.Query) (Result, error) {
	fp, normalized, err := keyFor(q)
	if err != nil {
		return Result{}, err
	}

	if r.store != nil {
		entry, ok, err := r.store.Get(ctx, fp)
		if err != nil {
			r.logger.Warn().Err(err).Str("fingerprint", fp).
				Msg("cache read failed, degrading to translator")
		} else if ok {
			var params models.SearchParams
			if err := json.Unmarshal(entry.Payload, &params); err == nil {
				r.logger.Debug().Str("fingerprint", fp).Int64("hit_count", entry.HitCount).
					Msg("cache hit")
				return Result{Params: params, Cached: true, Fingerprint: fp}, nil
			}
			r.logger.Warn().Str("fingerprint", fp).
				Msg("cached payload unreadable, re-translating")
		}
	}

	v, err, _ := r.group.Do(fp, func() (any, error) {
		params, err := r.translate(ctx, q, fp, normalized)
		if err != nil {
			return nil, err
		}
		return params, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Params: v.(models.SearchParams), Fingerprint: fp}, nil
}

func (r *Resolver) translate(ctx context.Context, q models.Query, fp, normalized string) (models.SearchParams, error) {
	if err := r.budget.Check(ctx); err != nil {
		return models.SearchParams{}, err
	}

	kind := q.Kind()
	start := time.Now()

	var params models.SearchParams
	var err error
	if kind == models.KindImage {
		params, err = r.tr.TranslateImage(ctx, q.Image)
	} else {
		// The translator sees the original text; only the key uses the
		// normalized form.
		params, err = r.tr.TranslateText(ctx, q.Text)
	}

	rec := models.TranslationRecord{
		Fingerprint: fp,
		Kind:        kind,
		Provider:    r.tr.Name(),
		Model:       r.tr.Model(),
		LatencyMs:   time.Since(start).Milliseconds(),
		OK:          err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if logErr := r.tlog.Record(ctx, rec); logErr != nil {
		r.logger.Warn().Err(logErr).Msg("translation log write failed")
	}

	if err != nil {
		return models.SearchParams{}, err
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return models.SearchParams{}, fmt.Errorf("%w: marshal parameters: %v", translator.ErrTranslationFailed, err)
	}
	if r.store != nil {
		if err := r.store.Put(ctx, fp, kind, normalized, payload, r.ttl); err != nil {
			return models.SearchParams{}, err
		}
	}

	r.logger.Info().Str("fingerprint", fp).Str("kind", string(kind)).
		Int64("latency_ms", rec.LatencyMs).Bool("cached", r.store != nil).
		Msg("query translated")
	return params, nil
}

// keyFor fingerprints the query and returns the normalized text kept for
// diagnostics (empty for image queries).
func keyFor(q models.Query) (fp, normalized string, err error) {
	if q.Image != nil {
		fp, err = fingerprint.Image(q.Image)
		return fp, "", err
	}
	if q.Text == "" {
		return "", "", fingerprint.ErrInvalidInput
	}
	return fingerprint.Text(q.Text), fingerprint.Normalize(q.Text), nil
}
