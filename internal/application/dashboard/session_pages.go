package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/domain/shared"
)

// DefaultSessionIdle is how long an unused page set is kept.
const DefaultSessionIdle = 30 * time.Minute

// Pages is the set of paginated caches owned by one client session. Full
// collections and the volume stream are not part of it; those are shared by
// every session of a Dashboard.
type Pages struct {
	Persons     *PagedCache[investor.Person]
	Commitments *PagedCache[investor.Commitment]
	items       map[investor.ItemType]*PagedCache[investor.Item]
}

// NewPages creates an unstarted page set.
func NewPages(opts ...Option) *Pages {
	return &Pages{
		Persons:     newPersonPage(opts),
		Commitments: newCommitmentPage(opts),
		items:       newItemPages(opts),
	}
}

// Items returns the paginated cache for item type t.
func (p *Pages) Items(t investor.ItemType) (*PagedCache[investor.Item], error) {
	page, ok := p.items[t]
	if !ok {
		return nil, shared.InvalidInputf("unknown item type %q", t)
	}
	return page, nil
}

// Start loads the first page of every cache.
func (p *Pages) Start(ctx context.Context, gw gateway.Gateway) error {
	errs := []error{
		p.Persons.Start(ctx, gw),
		p.Commitments.Start(ctx, gw),
	}
	for _, t := range investor.AllItemTypes {
		errs = append(errs, p.items[t].Start(ctx, gw))
	}
	return errors.Join(errs...)
}

// Stop releases every change subscription.
func (p *Pages) Stop() {
	p.Persons.Stop()
	p.Commitments.Stop()
	for _, page := range p.items {
		page.Stop()
	}
}

func newPersonPage(opts []Option) *PagedCache[investor.Person] {
	o := newOptions(opts)
	return NewPagedCache(PageQuery{Collection: gateway.CollectionPerson},
		investor.PersonDecoder(o.memberTypePolicy), opts...)
}

func newCommitmentPage(opts []Option) *PagedCache[investor.Commitment] {
	return NewPagedCache(PageQuery{Collection: gateway.CollectionCommitment}, investor.DecodeCommitment, opts...)
}

func newItemPages(opts []Option) map[investor.ItemType]*PagedCache[investor.Item] {
	pages := make(map[investor.ItemType]*PagedCache[investor.Item], len(investor.AllItemTypes))
	for _, t := range investor.AllItemTypes {
		pages[t] = NewPagedCache(PageQuery{
			Collection: gateway.CollectionItem,
			Filter:     gateway.Filter{"type": string(t)},
		}, investor.DecodeItem, opts...)
	}
	return pages
}

// SessionPages keeps one Pages per client session. A set is created on the
// first request of a session, released by Close on sign-out, and expired
// after it has been idle for longer than the configured idle period.
type SessionPages struct {
	opts   []Option
	idle   time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	gw       gateway.Gateway
	sessions map[string]*sessionEntry
	stop     context.CancelFunc
	done     chan struct{}
}

type sessionEntry struct {
	pages    *Pages
	lastSeen time.Time
	// ready is closed once the first pages have been fetched.
	ready chan struct{}
}

// NewSessionPages creates an empty registry. Every page set it creates is
// configured with opts.
func NewSessionPages(opts ...Option) *SessionPages {
	o := newOptions(opts)
	return &SessionPages{
		opts:     opts,
		idle:     o.sessionIdle,
		logger:   o.logger.With(zap.String("component", "session_pages")),
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Start attaches gw and starts the idle sweeper.
func (s *SessionPages) Start(ctx context.Context, gw gateway.Gateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gw = gw
	if s.stop != nil || s.idle <= 0 {
		return
	}
	ctx, s.stop = context.WithCancel(context.WithoutCancel(ctx))
	s.done = make(chan struct{})
	go s.sweepLoop(ctx, s.done)
}

// Stop releases every page set and detaches the gateway. Open fails until
// the registry is started again.
func (s *SessionPages) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.gw = nil
	sessions := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	for _, e := range sessions {
		e.pages.Stop()
	}
}

// Open returns the page set of session key, creating and starting it on
// first use. Fetch failures do not fail Open; they are recorded in each
// cache's snapshot like any other fetch failure.
func (s *SessionPages) Open(ctx context.Context, key string) (*Pages, error) {
	if key == "" {
		return nil, shared.InvalidInputf("session key is required")
	}

	s.mu.Lock()
	if s.gw == nil {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if e, ok := s.sessions[key]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		select {
		case <-e.ready:
			return e.pages, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &sessionEntry{pages: NewPages(s.opts...), lastSeen: s.now(), ready: make(chan struct{})}
	s.sessions[key] = e
	gw := s.gw
	s.mu.Unlock()

	if err := e.pages.Start(ctx, gw); err != nil {
		s.logger.Debug("session pages started with errors", zap.Error(err))
	}
	close(e.ready)

	// Closed while starting.
	s.mu.Lock()
	current := s.sessions[key]
	s.mu.Unlock()
	if current != e {
		e.pages.Stop()
	}
	return e.pages, nil
}

// Close releases the page set of session key, if any.
func (s *SessionPages) Close(key string) {
	s.mu.Lock()
	e, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if ok {
		e.pages.Stop()
	}
}

// Len returns the number of live page sets.
func (s *SessionPages) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep releases every page set idle for longer than the idle period and
// returns how many were released.
func (s *SessionPages) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	s.mu.Lock()
	now := s.now()
	var expired []*sessionEntry
	for key, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.idle {
			expired = append(expired, e)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.pages.Stop()
	}
	if len(expired) > 0 {
		s.logger.Debug("expired idle session pages", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *SessionPages) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(max(s.idle/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
