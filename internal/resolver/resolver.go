// Package resolver answers registry lookups (CNPJ company data, CEP postal
// data) through a cache-first, ordered multi-provider fallback chain. The
// first provider returning a well-formed success wins and is written through
// to the cache; every successful resolution is appended to an audit trail.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valentimdigital/IADESPEDIDA/internal/cache"
)

const defaultProviderTimeout = 10 * time.Second

// Result is a resolved lookup: provider-normalized fields plus provenance
// (ProvenanceCache or the provider name that answered).
type Result struct {
	Fields map[string]string
	Source string
}

const ProvenanceCache = "cache"

// Provider fetches one registry entry and normalizes its fields. A non-nil
// error means "fall through to the next provider"; providers are never
// retried.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, key string) (map[string]string, error)
}

// AuditSink records successful resolutions for compliance traceability.
// Implementations must tolerate being called often; resolver swallows their
// errors.
type AuditSink interface {
	AppendLookupAudit(ctx context.Context, conversationID, kind, key, source string) error
}

// FailedError reports that every provider in the chain was exhausted.
type FailedError struct {
	Kind      string
	Key       string
	Attempted []string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s lookup failed for %s (attempted: %s)", e.Kind, e.Key, strings.Join(e.Attempted, ", "))
}

type Resolver struct {
	kind      string
	cache     *cache.Cache
	providers []Provider
	audit     AuditSink
	timeout   time.Duration
	logger    *slog.Logger
}

// New builds a resolver for one lookup kind ("cnpj" or "cep") over an
// ordered provider chain. audit may be nil.
func New(kind string, c *cache.Cache, audit AuditSink, logger *slog.Logger, providers ...Provider) *Resolver {
	return &Resolver{
		kind:      kind,
		cache:     c,
		providers: providers,
		audit:     audit,
		timeout:   defaultProviderTimeout,
		logger:    logger,
	}
}

// SetProviderTimeout overrides the per-provider call timeout.
func (r *Resolver) SetProviderTimeout(d time.Duration) {
	r.timeout = d
}

// Resolve answers a lookup for an already-validated key. Cache hits return
// immediately with provenance "cache" and no provider call. Otherwise
// providers are tried in order with individual timeouts; on the first
// success the result is written through to the cache. When every provider
// fails a *FailedError is returned — callers treat it as a soft failure.
func (r *Resolver) Resolve(ctx context.Context, conversationID, key string) (Result, error) {
	cacheKey := r.kind + "_" + key

	if raw, ok, err := r.cache.Get(ctx, cacheKey); err != nil {
		r.logger.Warn("lookup cache read failed", "kind", r.kind, "key", key, "error", err)
	} else if ok {
		var fields map[string]string
		if err := json.Unmarshal(raw, &fields); err == nil {
			r.writeAudit(ctx, conversationID, key, ProvenanceCache)
			return Result{Fields: fields, Source: ProvenanceCache}, nil
		}
		r.logger.Warn("lookup cache entry corrupt, ignoring", "kind", r.kind, "key", key, "error", err)
	}

	attempted := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		attempted = append(attempted, p.Name())

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		fields, err := p.Fetch(callCtx, key)
		cancel()
		if err != nil {
			r.logger.Warn("lookup provider failed", "kind", r.kind, "key", key, "provider", p.Name(), "error", err)
			continue
		}

		if raw, err := json.Marshal(fields); err == nil {
			if err := r.cache.Put(ctx, cacheKey, raw); err != nil {
				// Persistence failures are soft; the in-memory result is
				// still returned for this turn.
				r.logger.Warn("lookup cache write failed", "kind", r.kind, "key", key, "error", err)
			}
		}
		r.writeAudit(ctx, conversationID, key, p.Name())

		r.logger.Info("lookup resolved", "kind", r.kind, "key", key, "source", p.Name())
		return Result{Fields: fields, Source: p.Name()}, nil
	}

	return Result{}, &FailedError{Kind: r.kind, Key: key, Attempted: attempted}
}

func (r *Resolver) writeAudit(ctx context.Context, conversationID, key, source string) {
	if r.audit == nil {
		return
	}
	if err := r.audit.AppendLookupAudit(ctx, conversationID, r.kind, key, source); err != nil {
		r.logger.Warn("lookup audit write failed", "kind", r.kind, "key", key, "error", err)
	}
}
