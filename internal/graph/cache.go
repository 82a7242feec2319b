package graph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/sample"
)

// Cache holds at most one graph per sample ref. Concurrent requests for a ref
// that is still loading share a single build; a failed build leaves nothing
// behind so the next request tries again.
type Cache struct {
	mu         sync.Mutex
	sampleRate int
	loader     sample.Loader
	logger     *slog.Logger

	graphs  map[pattern.SampleRef]*Graph
	pending map[pattern.SampleRef]struct{}
	group   singleflight.Group
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	builds int

	onBuild func(*Graph)
	onError func(error)
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithBuildHook registers fn to run once for every graph the cache builds,
// before the graph becomes visible to Lookup. fn runs with the cache locked
// and never after DisposeAll, so it must not call back into the cache.
func WithBuildHook(fn func(*Graph)) CacheOption {
	return func(c *Cache) { c.onBuild = fn }
}

// WithErrorHandler receives failures from background Prefetch builds.
func WithErrorHandler(fn func(error)) CacheOption {
	return func(c *Cache) { c.onError = fn }
}

func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCache(sampleRate int, loader sample.Loader, opts ...CacheOption) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		sampleRate: sampleRate,
		loader:     loader,
		logger:     slog.Default(),
		graphs:     make(map[pattern.SampleRef]*Graph),
		pending:    make(map[pattern.SampleRef]struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the ready graph for ref without starting a build.
func (c *Cache) Lookup(ref pattern.SampleRef) (*Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.graphs[ref]
	return g, ok
}

// GetOrBuild returns the graph for ref, building it on first use. The build
// itself is tied to the cache's lifetime, not to ctx: a caller that gives up
// does not cancel the build other callers are waiting on.
func (c *Cache) GetOrBuild(ctx context.Context, ref pattern.SampleRef) (*Graph, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if g, ok := c.graphs[ref]; ok {
		c.mu.Unlock()
		return g, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(string(ref), func() (interface{}, error) {
		return c.build(ref)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Graph), nil
	}
}

func (c *Cache) build(ref pattern.SampleRef) (*Graph, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if g, ok := c.graphs[ref]; ok {
		c.mu.Unlock()
		return g, nil
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	buf, err := c.loader.Load(c.ctx, string(ref))
	if err != nil {
		if c.isClosed() {
			return nil, ErrClosed
		}
		return nil, &AssetLoadError{Ref: ref, Err: err}
	}
	g, err := New(ref, buf, c.sampleRate)
	if err != nil {
		return nil, &AssetLoadError{Ref: ref, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		g.Dispose()
		return nil, ErrClosed
	}
	if c.onBuild != nil {
		c.onBuild(g)
	}
	c.graphs[ref] = g
	c.builds++
	c.logger.Debug("graph built", "ref", ref, "frames", buf.Frames())
	return g, nil
}

func (c *Cache) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Prefetch starts background builds for refs that are neither ready nor
// already being prefetched. Failures go to the error handler.
func (c *Cache) Prefetch(refs ...pattern.SampleRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, ref := range refs {
		if _, ok := c.graphs[ref]; ok {
			continue
		}
		if _, ok := c.pending[ref]; ok {
			continue
		}
		c.pending[ref] = struct{}{}
		c.wg.Add(1)
		go c.prefetch(ref)
	}
}

func (c *Cache) prefetch(ref pattern.SampleRef) {
	defer c.wg.Done()
	_, err := c.GetOrBuild(c.ctx, ref)
	c.mu.Lock()
	delete(c.pending, ref)
	c.mu.Unlock()
	if err == nil || errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) {
		return
	}
	c.logger.Warn("prefetch failed", "ref", ref, "err", err)
	if c.onError != nil {
		c.onError(err)
	}
}

// Wait blocks until every Prefetch and build started so far has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Preload builds every ref and waits for all of them. It returns the first
// failure; graphs that did build stay cached.
func (c *Cache) Preload(ctx context.Context, refs ...pattern.SampleRef) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		ref := ref
		eg.Go(func() error {
			_, err := c.GetOrBuild(ctx, ref)
			return err
		})
	}
	return eg.Wait()
}

// DisposeAll tears down every graph and closes the cache. Builds still in
// flight are cancelled and their graphs disposed on completion.
func (c *Cache) DisposeAll() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	graphs := c.graphs
	c.graphs = make(map[pattern.SampleRef]*Graph)
	c.mu.Unlock()

	for _, g := range graphs {
		g.Dispose()
	}
}

// Len is the number of ready graphs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.graphs)
}

// Builds counts successful builds over the cache's life.
func (c *Cache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
