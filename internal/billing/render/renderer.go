// Package render turns a fully-populated bill document into PDF bytes via a
// shared headless rendering engine.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrRenderTimeout indicates the engine exceeded its wall-clock budget.
var ErrRenderTimeout = errors.New("render: timed out")

// Backend converts HTML into PDF bytes.
type Backend interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Options tunes the renderer.
type Options struct {
	// MaxConcurrent bounds in-flight renders; each render opens a page in
	// the shared engine, so unbounded concurrency risks memory exhaustion.
	MaxConcurrent int64
	// Timeout is the per-render wall-clock budget.
	Timeout time.Duration
	// Cache optionally stores rendered bytes, keyed by fingerprint.
	Cache  *Cache
	Logger *slog.Logger
	// Observer is invoked once per render attempt with the outcome label
	// ("ok", "error" or "cache_hit") and the elapsed wall-clock time.
	Observer func(outcome string, elapsed time.Duration)
}

// Renderer orchestrates template substitution, concurrency bounding and the
// engine call. The backend is acquired once per process and reused.
type Renderer struct {
	backend Backend
	cache   *Cache
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
	observe func(outcome string, elapsed time.Duration)
}

// NewRenderer constructs a renderer around a shared backend.
func NewRenderer(backend Backend, opts Options) *Renderer {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = func(string, time.Duration) {}
	}
	return &Renderer{
		backend: backend,
		cache:   opts.Cache,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
		timeout: opts.Timeout,
		logger:  opts.Logger,
		observe: opts.Observer,
	}
}

// Render produces PDF bytes for the document. Template substitution happens
// first so a malformed document never reaches the engine; the semaphore slot
// and the timeout context are released on every exit path.
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	html, err := BuildHTML(doc)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	key := CacheKey(doc.Fingerprint())
	if pdf, ok := r.cache.Get(ctx, key); ok {
		r.observe("cache_hit", time.Since(start))
		return pdf, nil
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.observe("error", time.Since(start))
		return nil, fmt.Errorf("render: acquire slot: %w", err)
	}
	defer r.sem.Release(1)

	renderCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pdf, err := r.backend.RenderHTML(renderCtx, html)
	if err != nil {
		r.observe("error", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || renderCtx.Err() == context.DeadlineExceeded {
			return nil, ErrRenderTimeout
		}
		return nil, err
	}
	r.observe("ok", time.Since(start))
	r.logger.Debug("rendered bill pdf",
		slog.String("bill_number", doc.BillNumber),
		slog.Int("bytes", len(pdf)),
		slog.Duration("elapsed", time.Since(start)))

	r.cache.Set(ctx, key, pdf)
	return pdf, nil
}
