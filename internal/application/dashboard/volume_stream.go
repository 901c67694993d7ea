package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/investor"
)

// VolumeUpdate is one emission of the committed volume stream. Exactly one
// of Volumes and Err is set.
type VolumeUpdate struct {
	Volumes investor.VolumeMap `json:"volumes,omitempty"`
	Err     error              `json:"-"`
	Version uint64             `json:"version"`
}

// CommittedVolumeStream recomputes per-person committed volume whenever the
// person, item or commitment collection publishes a new snapshot.
// Subscribers share one computation.
type CommittedVolumeStream struct {
	persons     *Collection[investor.Person]
	items       *Collection[investor.Item]
	commitments *Collection[investor.Commitment]
	logger      *zap.Logger

	// publishMu serialises recomputation with delivery.
	publishMu sync.Mutex
	mu        sync.Mutex
	latest    *VolumeUpdate
	lastGood  investor.VolumeMap
	version   uint64
	seen      [3]uint64
	unsubs    []func()
	started   bool
	listeners *listenerSet[VolumeUpdate]

	recomputations atomic.Int64
}

// NewCommittedVolumeStream creates a stream over the three full collections.
// Use a VolumeStreamRegistry to share one stream per set of sources.
func NewCommittedVolumeStream(
	persons *Collection[investor.Person],
	items *Collection[investor.Item],
	commitments *Collection[investor.Commitment],
	opts ...Option,
) *CommittedVolumeStream {
	o := newOptions(opts)
	logger := o.logger.With(zap.String("stream", "committed_volume"))
	return &CommittedVolumeStream{
		persons:     persons,
		items:       items,
		commitments: commitments,
		logger:      logger,
		listeners:   newListenerSet[VolumeUpdate](logger, "committed_volume"),
	}
}

// Start listens to the three sources and loads any that were never loaded.
// Load failures are returned joined and are also delivered to subscribers.
func (s *CommittedVolumeStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.unsubs = []func(){
		s.persons.Subscribe(func(CollectionSnapshot[investor.Person]) { s.recompute() }),
		s.items.Subscribe(func(CollectionSnapshot[investor.Item]) { s.recompute() }),
		s.commitments.Subscribe(func(CollectionSnapshot[investor.Commitment]) { s.recompute() }),
	}
	s.mu.Unlock()

	err := errors.Join(
		s.persons.EnsureLoaded(ctx),
		s.items.EnsureLoaded(ctx),
		s.commitments.EnsureLoaded(ctx),
	)
	// Sources that were already loaded publish nothing on EnsureLoaded.
	s.recompute()
	return err
}

// Stop detaches from the sources. Subscribers are kept.
func (s *CommittedVolumeStream) Stop() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.started = false
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// Subscribe registers fn and immediately replays the latest update, if any.
func (s *CommittedVolumeStream) Subscribe(fn func(VolumeUpdate)) (unsubscribe func()) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	unsubscribe = s.listeners.add(fn)
	if latest, ok := s.LatestUpdate(); ok {
		s.listeners.dispatch(fn, latest)
	}
	return unsubscribe
}

// Latest returns the most recent successfully computed volumes.
func (s *CommittedVolumeStream) Latest() (investor.VolumeMap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastGood == nil {
		return nil, false
	}
	return copyVolumes(s.lastGood), true
}

// LatestUpdate returns the most recent emission, successful or not.
func (s *CommittedVolumeStream) LatestUpdate() (VolumeUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return VolumeUpdate{}, false
	}
	return *s.latest, true
}

// Recomputations reports how many times volumes were computed.
func (s *CommittedVolumeStream) Recomputations() int64 {
	return s.recomputations.Load()
}

// Sources returns the three collections the stream is built on.
func (s *CommittedVolumeStream) Sources() (*Collection[investor.Person], *Collection[investor.Item], *Collection[investor.Commitment]) {
	return s.persons, s.items, s.commitments
}

func (s *CommittedVolumeStream) recompute() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	persons := s.persons.Snapshot()
	items := s.items.Snapshot()
	commitments := s.commitments.Snapshot()

	update, ok := s.apply(persons, items, commitments)
	if ok {
		s.listeners.publish(update)
	}
}

func (s *CommittedVolumeStream) apply(
	persons CollectionSnapshot[investor.Person],
	items CollectionSnapshot[investor.Item],
	commitments CollectionSnapshot[investor.Commitment],
) (VolumeUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	generations := [3]uint64{persons.Generation, items.Generation, commitments.Generation}
	if generations == s.seen {
		return VolumeUpdate{}, false
	}

	if err := errors.Join(persons.Err, items.Err, commitments.Err); err != nil {
		s.seen = generations
		update := VolumeUpdate{Err: err, Version: s.version}
		s.latest = &update
		s.logger.Warn("committed volume withheld", zap.Error(err))
		return update, true
	}
	if !persons.Loaded || !items.Loaded || !commitments.Loaded {
		return VolumeUpdate{}, false
	}
	s.seen = generations

	volumes := investor.ComputeCommittedVolume(persons.Rows, items.Rows, commitments.Rows)
	s.recomputations.Add(1)
	s.version++
	s.lastGood = volumes
	update := VolumeUpdate{Volumes: copyVolumes(volumes), Version: s.version}
	s.latest = &update
	s.logger.Debug("committed volume recomputed",
		zap.Int("persons", len(volumes)),
		zap.Uint64("version", s.version),
	)
	return update, true
}

func copyVolumes(in investor.VolumeMap) investor.VolumeMap {
	out := make(investor.VolumeMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type volumeSources struct {
	persons     *Collection[investor.Person]
	items       *Collection[investor.Item]
	commitments *Collection[investor.Commitment]
}

// VolumeStreamRegistry hands out one CommittedVolumeStream per set of
// source collections.
type VolumeStreamRegistry struct {
	mu      sync.Mutex
	streams map[volumeSources]*CommittedVolumeStream
	opts    []Option
}

// NewVolumeStreamRegistry creates an empty registry. opts apply to every
// stream it creates.
func NewVolumeStreamRegistry(opts ...Option) *VolumeStreamRegistry {
	return &VolumeStreamRegistry{
		streams: make(map[volumeSources]*CommittedVolumeStream),
		opts:    opts,
	}
}

// Get returns the stream for the given sources, creating it on first use.
func (r *VolumeStreamRegistry) Get(
	persons *Collection[investor.Person],
	items *Collection[investor.Item],
	commitments *Collection[investor.Commitment],
) *CommittedVolumeStream {
	key := volumeSources{persons: persons, items: items, commitments: commitments}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[key]; ok {
		return s
	}
	s := NewCommittedVolumeStream(persons, items, commitments, r.opts...)
	r.streams[key] = s
	return s
}

// Len returns the number of streams held.
func (r *VolumeStreamRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// Reset stops and forgets every stream. The next Get builds a new one.
func (r *VolumeStreamRegistry) Reset() {
	r.mu.Lock()
	streams := r.streams
	r.streams = make(map[volumeSources]*CommittedVolumeStream)
	r.mu.Unlock()

	for _, s := range streams {
		s.Stop()
	}
}
