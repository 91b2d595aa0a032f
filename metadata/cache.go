// Package metadata keeps the merged view of per-post views, comments and
// reactions. Data is refreshed lazily on read from the post index, the
// analytics backend and the fediverse instance.
//
// All state sits behind one mutex that is held for the whole of every read,
// upstream calls included. At most one refresh runs at a time, so there are
// no duplicate logins and no reader ever sees a half-applied refresh.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ddevcap/blog-metadata/backend"
)

const (
	// DefaultTTL is how long each tier of the cache stays fresh.
	DefaultTTL = 5 * time.Minute

	blogPathPrefix = "/blog"
)

// Metadata is the engagement summary of one blog post.
type Metadata struct {
	Views     uint64 `json:"views"`
	Comments  uint64 `json:"comments"`
	Reactions uint64 `json:"reactions"`
}

// Analytics is the subset of the analytics client the cache needs.
type Analytics interface {
	Verify(ctx context.Context, token string) (string, error)
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResponse, error)
	PageviewsForPath(ctx context.Context, token, websiteID, path string) (uint64, error)
	PageviewsForPrefix(ctx context.Context, token, websiteID, prefix string) (map[string]uint64, error)
}

// Social is the subset of the fediverse client the cache needs.
type Social interface {
	NoteEngagement(ctx context.Context, noteID string) (backend.Engagement, error)
	UserNotes(ctx context.Context, userID string, limit int) (map[string]backend.Engagement, error)
}

// IndexSource provides the published slug → linked note map.
type IndexSource interface {
	FetchIndex(ctx context.Context) (map[string]*string, error)
}

// Options configures a Cache.
type Options struct {
	Analytics Analytics
	Social    Social
	Index     IndexSource

	Credentials  backend.Credentials
	WebsiteID    string
	SocialUserID string

	// TTL defaults to DefaultTTL.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// entry is the cached state of one post.
type entry struct {
	metadata      Metadata
	noteID        *string
	lastRefreshed time.Time // zero until the first metadata refresh
}

// Cache is the process-wide metadata cache. The zero value is not usable;
// create one with New.
type Cache struct {
	analytics    Analytics
	social       Social
	index        IndexSource
	credentials  backend.Credentials
	websiteID    string
	socialUserID string
	ttl          time.Duration
	now          func() time.Time

	mu                 sync.Mutex
	entries            map[string]*entry
	indexRefreshed     time.Time
	aggregateRefreshed time.Time
	token              string

	// stats is republished before every unlock so Stats never waits on c.mu.
	stats atomic.Pointer[Stats]
}

func New(opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		analytics:    opts.Analytics,
		social:       opts.Social,
		index:        opts.Index,
		credentials:  opts.Credentials,
		websiteID:    opts.WebsiteID,
		socialUserID: opts.SocialUserID,
		ttl:          ttl,
		now:          now,
		entries:      make(map[string]*entry),
	}
}

// Get returns the metadata of one post, refreshing it from the upstreams when
// it is older than the TTL. It fails with ErrNotFound for slugs missing from
// the post index and with ErrUnavailable when a needed upstream fails; in that
// case the cached entry is left untouched.
func (c *Cache) Get(ctx context.Context, slug string) (Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishStats()

	if err := c.refreshIndex(ctx); err != nil {
		return Metadata{}, err
	}

	e, ok := c.entries[slug]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if c.fresh(e.lastRefreshed) {
		return e.metadata, nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return Metadata{}, err
	}

	var (
		views      uint64
		engagement backend.Engagement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.analytics.PageviewsForPath(gctx, token, c.websiteID, postPath(slug))
		if errors.Is(err, backend.ErrNotFound) {
			return nil
		}
		views = v
		return err
	})
	if e.noteID != nil {
		noteID := *e.noteID
		g.Go(func() error {
			eng, err := c.social.NoteEngagement(gctx, noteID)
			engagement = eng
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Metadata{}, unavailable("refresh "+slug, err)
	}

	e.metadata = merge(views, engagement)
	e.lastRefreshed = c.now()
	return e.metadata, nil
}

// All returns the metadata of every known post. Once the aggregate is older
// than the TTL, every entry is refreshed from one bulk pageview query and one
// user-notes query. Posts absent from either result report zero counts.
func (c *Cache) All(ctx context.Context) (map[string]Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishStats()

	if err := c.refreshIndex(ctx); err != nil {
		return nil, err
	}
	if c.fresh(c.aggregateRefreshed) {
		return c.snapshot(), nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var (
		views map[string]uint64
		notes map[string]backend.Engagement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.analytics.PageviewsForPrefix(gctx, token, c.websiteID, blogPathPrefix)
		views = v
		return err
	})
	g.Go(func() error {
		n, err := c.social.UserNotes(gctx, c.socialUserID, backend.UserNotesLimit)
		notes = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, unavailable("bulk refresh", err)
	}

	now := c.now()
	for slug, e := range c.entries {
		var engagement backend.Engagement
		if e.noteID != nil {
			engagement = notes[*e.noteID]
		}
		e.metadata = merge(views[postPath(slug)], engagement)
		e.lastRefreshed = now
	}
	c.aggregateRefreshed = now
	return c.snapshot(), nil
}

// Stats is a point-in-time view of the cache clocks for readiness reporting.
type Stats struct {
	Entries              int       `json:"entries"`
	IndexRefreshedAt     time.Time `json:"index_refreshed_at"`
	AggregateRefreshedAt time.Time `json:"aggregate_refreshed_at"`
	HasToken             bool      `json:"has_token"`
}

// Stats reports the cache clocks as of the last completed Get or All. It
// never triggers a refresh and does not wait for one in progress.
func (c *Cache) Stats() Stats {
	if st := c.stats.Load(); st != nil {
		return *st
	}
	return Stats{}
}

// publishStats snapshots the clocks for Stats. Callers must hold c.mu.
func (c *Cache) publishStats() {
	c.stats.Store(&Stats{
		Entries:              len(c.entries),
		IndexRefreshedAt:     c.indexRefreshed,
		AggregateRefreshedAt: c.aggregateRefreshed,
		HasToken:             c.token != "",
	})
}

// refreshIndex re-reads the post index once it is older than the TTL. New
// slugs start with a zero refresh time so their metadata is immediately
// stale; known slugs keep their metadata and pick up the new note link.
// Slugs dropped upstream are kept. Callers must hold c.mu.
func (c *Cache) refreshIndex(ctx context.Context) error {
	if !c.indexRefreshed.IsZero() && c.now().Sub(c.indexRefreshed) <= c.ttl {
		return nil
	}

	index, err := c.index.FetchIndex(ctx)
	if err != nil {
		return unavailable("refresh index", err)
	}

	added := 0
	for slug, noteID := range index {
		if noteID != nil && *noteID == "" {
			noteID = nil
		}
		if e, ok := c.entries[slug]; ok {
			e.noteID = noteID
			continue
		}
		c.entries[slug] = &entry{noteID: noteID}
		added++
	}
	c.indexRefreshed = c.now()
	slog.Info("post index refreshed", "slugs", len(index), "added", added, "cached", len(c.entries))
	return nil
}

func (c *Cache) fresh(t time.Time) bool {
	return !t.IsZero() && c.now().Sub(t) < c.ttl
}

func (c *Cache) snapshot() map[string]Metadata {
	out := make(map[string]Metadata, len(c.entries))
	for slug, e := range c.entries {
		out[slug] = e.metadata
	}
	return out
}

func postPath(slug string) string {
	return blogPathPrefix + "/" + slug
}

func merge(views uint64, engagement backend.Engagement) Metadata {
	return Metadata{
		Views:     views,
		Comments:  engagement.RepliesCount,
		Reactions: engagement.ReactionCount,
	}
}
