// Package cache deduplicates and caches backend reads per resource key and
// keeps displayed data consistent after mutations.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finclient/internal/log"
)

const DefaultMaxEntries = 256

// Fetcher loads the value for one key from the backend.
type Fetcher func(ctx context.Context) (any, error)

// Result is what a reader or subscriber sees for a key.
type Result struct {
	Data      any
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

// HasData reports whether a value was ever fetched successfully.
func (r Result) HasData() bool { return !r.UpdatedAt.IsZero() }

type entry struct {
	key       Key
	gen       uint64
	data      any
	err       error
	stale     bool
	updatedAt time.Time
}

type subscription struct {
	key       Key
	fetch     Fetcher
	listeners map[uint64]func(Result)
}

// QueryClient caches reads by Key. Concurrent reads of one key share a
// single backend call. There is no time-based expiry: entries become
// stale only through Invalidate.
type QueryClient struct {
	mu      sync.Mutex
	entries *LRUCache[*entry]
	// gens holds the generation of every key that is cached, subscribed
	// or being fetched. epoch is the latest generation handed out.
	gens   map[string]uint64
	epoch  uint64
	subs   map[string]*subscription
	nextID uint64
	group  singleflight.Group
	logger *log.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*QueryClient)

func WithMaxEntries(n int) Option {
	return func(c *QueryClient) { c.entries = NewLRUCache[*entry](n, c.evictedLocked) }
}

func WithLogger(l *log.Logger) Option {
	return func(c *QueryClient) { c.logger = l.WithComponent(log.ComponentCache) }
}

func NewQueryClient(opts ...Option) *QueryClient {
	ctx, cancel := context.WithCancel(context.Background())
	c := &QueryClient{
		gens:   make(map[string]uint64),
		subs:   make(map[string]*subscription),
		logger: log.Default().WithComponent(log.ComponentCache),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	c.entries = NewLRUCache[*entry](DefaultMaxEntries, c.evictedLocked)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key when it is fresh. Otherwise it
// calls fetch, sharing the call with every concurrent caller of the same
// key. A caller whose ctx ends stops waiting; the shared call continues.
func (c *QueryClient) Fetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	k := key.String()

	c.mu.Lock()
	if e, ok := c.entries.Get(k); ok && !e.stale && !e.updatedAt.IsZero() {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	gen := c.generationLocked(k)
	c.mu.Unlock()

	return c.load(ctx, key, fetch, gen)
}

// Refetch calls fetch even if the cached value is fresh. Callers of
// Fetch that arrive meanwhile join the same call.
func (c *QueryClient) Refetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.mu.Lock()
	gen := c.generationLocked(key.String())
	c.mu.Unlock()
	return c.load(ctx, key, fetch, gen)
}

// generationLocked returns the current generation of k, registering k so
// that a later Invalidate can outdate fetches already in flight.
func (c *QueryClient) generationLocked(k string) uint64 {
	gen, ok := c.gens[k]
	if !ok {
		gen = c.epoch
		c.gens[k] = gen
	}
	return gen
}

// currentGenerationLocked is the generation a fetch must carry to be fresh.
// A key that was forgotten meanwhile only accepts fetches from the latest
// epoch, so a forgotten invalidation can never be mistaken for none.
func (c *QueryClient) currentGenerationLocked(k string) uint64 {
	if gen, ok := c.gens[k]; ok {
		return gen
	}
	return c.epoch
}

// evictedLocked forgets the generation of a key pushed out of the cache
// unless something still displays it. Called with c.mu held.
func (c *QueryClient) evictedLocked(k string) {
	if _, ok := c.subs[k]; !ok {
		delete(c.gens, k)
	}
}

func (c *QueryClient) load(ctx context.Context, key Key, fetch Fetcher, gen uint64) (any, error) {
	k := key.String()
	flight := k + "#" + strconv.FormatUint(gen, 10)

	ch := c.group.DoChan(flight, func() (any, error) {
		data, err := fetch(context.WithoutCancel(ctx))
		c.record(key, gen, data, err)
		return data, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// record stores the outcome of a fetch. A failure keeps the previous value.
// A value fetched for an outdated generation stays stale and never replaces
// a value from a newer one.
func (c *QueryClient) record(key Key, gen uint64, data any, err error) {
	k := key.String()

	c.mu.Lock()
	e, ok := c.entries.Get(k)
	if !ok {
		e = &entry{key: key}
	}
	switch {
	case err != nil:
		e.err = err
	case e.updatedAt.IsZero() || gen >= e.gen:
		e.gen = gen
		e.data = data
		e.err = nil
		e.updatedAt = c.now()
		e.stale = c.currentGenerationLocked(k) != gen
	}
	c.entries.Set(k, e)
	res := e.result()
	listeners := c.listenersLocked(k)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Fetch failed",
			log.FieldKey, key,
			log.FieldError, err)
	}
	for _, fn := range listeners {
		fn(res)
	}
}

func (e *entry) result() Result {
	return Result{Data: e.data, Err: e.err, Stale: e.stale, UpdatedAt: e.updatedAt}
}

func (c *QueryClient) listenersLocked(k string) []func(Result) {
	sub, ok := c.subs[k]
	if !ok {
		return nil
	}
	fns := make([]func(Result), 0, len(sub.listeners))
	for _, fn := range sub.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// State returns what is cached for key without fetching.
func (c *QueryClient) State(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Get(key.String())
	if !ok {
		return Result{}, false
	}
	return e.result(), true
}

// Invalidate marks every cached entry under any of the prefixes stale and
// refetches, in the background, the keys that have subscribers. It returns
// the number of cached entries marked.
func (c *QueryClient) Invalidate(prefixes ...Key) int {
	type refetch struct {
		key   Key
		fetch Fetcher
	}
	var (
		marked int
		jobs   []refetch
	)

	c.mu.Lock()
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Get(k)
		if !ok || !e.key.Matches(prefixes...) {
			continue
		}
		e.stale = true
		marked++
	}
	bumped := false
	for k := range c.gens {
		if !parseKey(k).Matches(prefixes...) {
			continue
		}
		if !bumped {
			c.epoch++
			bumped = true
		}
		c.gens[k] = c.epoch
	}
	for _, sub := range c.subs {
		if !sub.key.Matches(prefixes...) {
			continue
		}
		jobs = append(jobs, refetch{key: sub.key, fetch: sub.fetch})
	}
	c.mu.Unlock()

	c.logger.Debug("Invalidated",
		log.FieldOperation, log.OpInvalidate,
		log.FieldKeys, fmt.Sprint(prefixes),
		"marked", marked,
		"refetching", len(jobs))

	for _, j := range jobs {
		c.background(j.key, j.fetch)
	}
	return marked
}

func (c *QueryClient) background(key Key, fetch Fetcher) {
	if c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Errors are recorded on the entry and logged by record.
		_, _ = c.Refetch(c.ctx, key, fetch)
	}()
}

// Subscribe registers fn as a displayed consumer of key. fn receives the
// cached value immediately, if any, and the outcome of every later fetch
// of key. A missing or stale value is fetched in the background, and fetch
// is reused for refetches after invalidation. The returned func removes
// the subscription.
func (c *QueryClient) Subscribe(key Key, fetch Fetcher, fn func(Result)) (unsubscribe func()) {
	k := key.String()

	c.mu.Lock()
	sub, ok := c.subs[k]
	if !ok {
		sub = &subscription{key: key, fetch: fetch, listeners: make(map[uint64]func(Result))}
		c.subs[k] = sub
	}
	sub.fetch = fetch
	c.nextID++
	id := c.nextID
	sub.listeners[id] = fn

	var (
		current Result
		cached  bool
	)
	if e, ok := c.entries.Get(k); ok && !e.updatedAt.IsZero() {
		current = e.result()
		cached = true
	}
	c.mu.Unlock()

	if cached {
		fn(current)
	}
	if !cached || current.Stale {
		c.background(key, fetch)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if s, ok := c.subs[k]; ok {
				delete(s.listeners, id)
				if len(s.listeners) == 0 {
					delete(c.subs, k)
					if _, cached := c.entries.Get(k); !cached {
						delete(c.gens, k)
					}
				}
			}
		})
	}
}

// Clear drops every cached entry and outdates fetches in flight.
// Subscriptions are kept.
func (c *QueryClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.epoch++
	for k := range c.gens {
		if _, ok := c.subs[k]; ok {
			c.gens[k] = c.epoch
		} else {
			delete(c.gens, k)
		}
	}
}

// Close stops background refetches and waits for running ones.
func (c *QueryClient) Close() {
	c.cancel()
	c.wg.Wait()
}

// Get is Fetch with a typed fetcher and result.
func Get[T any](ctx context.Context, c *QueryClient, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, Typed(fetch))
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %v holds %T, not %T", key, v, zero)
	}
	return t, nil
}

// Typed adapts a typed fetch function to a Fetcher.
func Typed[T any](fetch func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}
