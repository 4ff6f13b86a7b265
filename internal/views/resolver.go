// Package views resolves best-effort view counts for batches of page paths
// against an external counter service and serves them over HTTP.
package views

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"thinblog/internal/domain/config"
	"thinblog/internal/domain/counts"
	domainerr "thinblog/internal/domain/errors"
	"thinblog/internal/logger"
)

type Response struct {
	Counts map[string]counts.Count `json:"counts"`
	Site   string                  `json:"site"`
}

type Resolver struct {
	site        string
	concurrency int
	timeout     time.Duration

	counter Counter
	cache   *Cache
	metrics *Metrics
	log     *slog.Logger
}

// NewResolver wires a resolver. A nil counter talks HTTP to cfg.Site; a nil
// cache disables caching; a nil metrics records nothing.
func NewResolver(cfg config.ViewsConfig, counter Counter, cache *Cache, metrics *Metrics, log *slog.Logger) *Resolver {
	if counter == nil && strings.TrimSpace(cfg.Site) != "" {
		counter = NewHTTPCounter(cfg.Site, &http.Client{})
	}
	conc := cfg.Concurrency
	if conc < 1 {
		conc = 1
	}
	return &Resolver{
		site:        strings.TrimSpace(cfg.Site),
		concurrency: conc,
		timeout:     cfg.UpstreamTimeout,
		counter:     counter,
		cache:       cache,
		metrics:     metrics,
		log:         logger.OrDiscard(log).With("component", "views"),
	}
}

func (r *Resolver) Site() string { return r.site }

// Resolve returns a count for every distinct non-blank path, keyed by the
// path exactly as requested. Lookup failures degrade to zero counts; only a
// missing site or an empty batch is an error.
func (r *Resolver) Resolve(ctx context.Context, paths []string) (Response, error) {
	if r.site == "" || r.counter == nil {
		return Response{}, domainerr.ErrMissingSite
	}
	paths = DedupeRequested(paths)
	if len(paths) == 0 {
		return Response{}, domainerr.ErrNoPaths
	}

	start := time.Now()
	results := make([]counts.Count, len(paths))
	for lo := 0; lo < len(paths); lo += r.concurrency {
		hi := min(lo+r.concurrency, len(paths))
		g, gctx := errgroup.WithContext(ctx)
		for i := lo; i < hi; i++ {
			i := i
			g.Go(func() error {
				results[i] = r.resolveOne(gctx, paths[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	r.metrics.observe(time.Since(start).Seconds())

	out := Response{Counts: make(map[string]counts.Count, len(paths)), Site: r.site}
	for i, p := range paths {
		out.Counts[p] = results[i]
	}
	return out, nil
}

// Outcome is the result of trying a lookup's candidates in order. Exhausted
// means every candidate failed; Count is then the zero fallback.
type Outcome struct {
	Count     counts.Count
	Candidate string
	Exhausted bool
}

func (r *Resolver) resolveOne(ctx context.Context, raw string) counts.Count {
	lk := Candidates(raw)
	if c, ok := r.cache.Get(lk.Key); ok {
		r.metrics.cacheLookup(true)
		return c
	}
	r.metrics.cacheLookup(false)

	out := r.tryCandidates(ctx, lk)
	if out.Exhausted && ctx.Err() != nil {
		// the caller went away; the upstream was never really asked
		r.log.DebugContext(ctx, "lookup cancelled, not caching", "path", raw, "err", ctx.Err())
		return out.Count
	}
	if out.Exhausted {
		r.metrics.fallback()
		r.log.InfoContext(ctx, "no candidate resolved, using zero count", "path", raw, "key", lk.Key)
	}
	r.cache.Set(lk.Key, out.Count)
	return out.Count
}

// tryCandidates stops at the first candidate the counter answers.
func (r *Resolver) tryCandidates(ctx context.Context, lk Lookup) Outcome {
	for _, cand := range lk.Candidates {
		c, err := r.fetch(ctx, cand)
		r.metrics.upstreamCall(err)
		if err == nil {
			return Outcome{Count: c, Candidate: cand}
		}
		r.log.DebugContext(ctx, "candidate failed", "key", lk.Key, "candidate", cand, "err", err)
	}
	return Outcome{
		Count:     counts.Count{ResolvedPath: lk.Candidates[0]},
		Candidate: lk.Candidates[0],
		Exhausted: true,
	}
}

func (r *Resolver) fetch(ctx context.Context, candidate string) (counts.Count, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.counter.Fetch(ctx, candidate)
}
