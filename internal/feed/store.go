package feed

import (
	"sync"

	"github.com/jasmine-z2a/studio/internal/model"
)

// Subscription delivers record batches for one topic. Batches are dropped
// rather than blocking the ingest path when the subscriber falls behind;
// a subscriber can always recover the full state from History.Snapshot.
type Subscription struct {
	C     chan []model.LogRecord
	topic string
	store *Store
}

// Topic returns the topic this subscription follows.
func (s *Subscription) Topic() string { return s.topic }

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.store.unsubscribe(s)
}

// Store owns the topic catalog and one bounded history per topic. It is
// the data-source side of the pipeline: ingest appends here, panels read
// snapshots and subscribe for live batches.
type Store struct {
	mu        sync.RWMutex
	cap       int
	order     []model.TopicDescriptor
	histories map[string]*History
	subs      map[string]map[*Subscription]struct{}
}

func NewStore(historyCap int) *Store {
	if historyCap <= 0 {
		historyCap = DefaultCap
	}
	return &Store{
		cap:       historyCap,
		histories: make(map[string]*History),
		subs:      make(map[string]map[*Subscription]struct{}),
	}
}

// Append registers the topic on first sight (catalog order is first-seen
// order), buffers the records, and notifies subscribers. Buffering and
// notification happen under one lock, so relative to
// SubscribeWithSnapshot an append is atomic: its records land in the
// snapshot or on the channel, never in neither.
func (s *Store) Append(topic, datatype string, recs ...model.LogRecord) {
	if topic == "" || len(recs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyLocked(topic, datatype).Append(recs...)
	for sub := range s.subs[topic] {
		select {
		case sub.C <- recs:
		default:
			// Slow subscriber: drop the batch.
		}
	}
}

// Restore buffers records without notifying subscribers. Used when
// reloading snapshots before the server starts serving.
func (s *Store) Restore(topic, datatype string, recs []model.LogRecord) {
	if topic == "" {
		return
	}
	s.mu.Lock()
	h := s.historyLocked(topic, datatype)
	s.mu.Unlock()
	h.Append(recs...)
}

func (s *Store) historyLocked(topic, datatype string) *History {
	h, ok := s.histories[topic]
	if !ok {
		h = NewHistory(s.cap)
		s.histories[topic] = h
		s.order = append(s.order, model.TopicDescriptor{Name: topic, Datatype: datatype})
	}
	return h
}

// Topics returns the catalog in first-seen order.
func (s *Store) Topics() []model.TopicDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TopicDescriptor, len(s.order))
	copy(out, s.order)
	return out
}

// Datatype returns the declared datatype for a topic.
func (s *Store) Datatype(topic string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.order {
		if t.Name == topic {
			return t.Datatype, true
		}
	}
	return "", false
}

// Records returns a snapshot of the topic's history. Unknown topics yield
// an empty slice: no data is not an error.
func (s *Store) Records(topic string) []model.LogRecord {
	s.mu.RLock()
	h, ok := s.histories[topic]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.Snapshot()
}

// History exposes the topic's buffer, or nil when the topic is unknown.
func (s *Store) History(topic string) *History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.histories[topic]
}

// Subscribe registers for live batches on a topic. buf bounds the number
// of undelivered batches before drops begin.
func (s *Store) Subscribe(topic string, buf int) *Subscription {
	_, sub := s.SubscribeWithSnapshot(topic, buf)
	return sub
}

// SubscribeWithSnapshot registers a subscription and snapshots the
// topic's history as one atomic step: a concurrent append lands either in
// the returned snapshot or on the subscription channel, never in neither
// and never in both.
func (s *Store) SubscribeWithSnapshot(topic string, buf int) ([]model.LogRecord, *Subscription) {
	if buf <= 0 {
		buf = 16
	}
	sub := &Subscription{
		C:     make(chan []model.LogRecord, buf),
		topic: topic,
		store: s,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[topic] == nil {
		s.subs[topic] = make(map[*Subscription]struct{})
	}
	s.subs[topic][sub] = struct{}{}
	var snapshot []model.LogRecord
	if h := s.histories[topic]; h != nil {
		snapshot = h.Snapshot()
	}
	return snapshot, sub
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.C)
	if len(set) == 0 {
		delete(s.subs, sub.topic)
	}
}
