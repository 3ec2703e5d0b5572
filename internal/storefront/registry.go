package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/wishlist"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var activeStorefronts = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_active_sessions",
	Help: "Number of browser storefronts held in memory",
})

// Config holds the per-storefront settings.
type Config struct {
	DefaultSort string
	ReturnURL   string
	IdleTTL     time.Duration
}

// Registry owns the storefront of every active browser session.
type Registry struct {
	upstream  Upstream
	persister session.Persister
	events    *event.Emitter
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	items map[string]*Storefront
}

// NewRegistry creates an empty Registry.
func NewRegistry(up Upstream, persister session.Persister, events *event.Emitter, cfg Config, logger *slog.Logger) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if events == nil {
		events = event.NewEmitter(nil, logger)
	}
	return &Registry{
		upstream:  up,
		persister: persister,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		items:     make(map[string]*Storefront),
	}
}

// Get returns the storefront for sid, creating and opening it on first use.
func (r *Registry) Get(ctx context.Context, sid string) (*Storefront, error) {
	if sid == "" {
		return nil, apperrors.InvalidInput("missing session id")
	}

	r.mu.Lock()
	sf, ok := r.items[sid]
	if !ok {
		sf = r.build(sid)
		r.items[sid] = sf
		activeStorefronts.Set(float64(len(r.items)))
	}
	sf.touch(r.now())
	r.mu.Unlock()

	if err := sf.Open(ctx); err != nil {
		return nil, err
	}
	return sf, nil
}

func (r *Registry) build(sid string) *Storefront {
	l := r.logger.With(slog.String("session_id", sid))
	store := session.NewStore(sid, r.persister, l)
	return &Storefront{
		sid:       sid,
		returnURL: r.cfg.ReturnURL,
		auth:      r.upstream,
		events:    r.events,
		logger:    l,
		Session:   store,
		Cart:      cart.NewSynchronizer(store, r.upstream, r.events, l),
		Wishlist:  wishlist.NewSynchronizer(store, r.upstream, r.events, l),
		Listing:   catalog.NewListing(r.upstream, r.cfg.DefaultSort, l),
		Checkout:  checkout.NewFlow(store, r.upstream, r.events, l),
	}
}

// Len returns the number of storefronts held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Evict drops storefronts idle for longer than the configured TTL. Their
// persisted tokens are kept, so the next request reopens the session.
func (r *Registry) Evict() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for sid, sf := range r.items {
		if sf.idleSince(now) > r.cfg.IdleTTL {
			delete(r.items, sid)
			evicted++
		}
	}
	activeStorefronts.Set(float64(len(r.items)))
	return evicted
}

// StartCleanup evicts idle storefronts periodically until ctx is cancelled.
func (r *Registry) StartCleanup(ctx context.Context) {
	interval := r.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Evict(); n > 0 {
					r.logger.Debug("evicted idle storefronts", slog.Int("count", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
