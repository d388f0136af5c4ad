package outbox

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

// MemoryStore is the memtx-backed outbox used with the in-memory repositories.
type MemoryStore struct {
	db     *memtx.DB
	events *memtx.Table[int64, Event]
	ids    *memtx.Sequence
	now    func() time.Time
}

func NewMemoryStore(db *memtx.DB) *MemoryStore {
	return &MemoryStore{
		db: db,
		events: memtx.NewTable[int64, Event](db, func(e Event) Event {
			e.Headers = maps.Clone(e.Headers)
			e.Payload = slices.Clone(e.Payload)
			return e
		}),
		ids: memtx.NewSequence(db),
		now: time.Now,
	}
}

func (s *MemoryStore) Enqueue(ctx context.Context, events ...Event) error {
	s.db.View(ctx, func() {
		for _, e := range events {
			e.ID = s.ids.Next()
			e.Status = StatusPending
			e.CreatedAt = s.now().UTC()
			s.events.Put(e.ID, e)
		}
	})
	return nil
}

func (s *MemoryStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	var out []Event
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		var ready []Event
		s.events.Scan(func(_ int64, e Event) bool {
			if e.Status == StatusPending || (e.Status == StatusInProgress && now.After(e.LeaseUntil)) {
				ready = append(ready, e)
			}
			return true
		})
		slices.SortFunc(ready, func(a, b Event) int { return int(a.ID - b.ID) })
		if len(ready) > batchSize {
			ready = ready[:batchSize]
		}
		for _, e := range ready {
			e.Status = StatusInProgress
			e.RelayID = relayID
			e.LeaseUntil = now.Add(lease)
			s.events.Put(e.ID, e)
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) MarkSent(ctx context.Context, ids []int64) error {
	s.db.View(ctx, func() {
		for _, id := range ids {
			if e, ok := s.events.Get(id); ok {
				e.Status = StatusSent
				s.events.Put(id, e)
			}
		}
	})
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.db.View(ctx, func() {
		e, ok := s.events.Get(id)
		if !ok {
			return
		}
		e.RetryCount++
		e.LastError = &errMsg
		e.Status = StatusPending
		if e.RetryCount >= MaxRetries {
			e.Status = StatusFailed
		}
		s.events.Put(id, e)
	})
	return nil
}

func (s *MemoryStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	s.db.View(ctx, func() {
		for _, id := range ids {
			if e, ok := s.events.Get(id); ok && e.RelayID == relayID {
				e.LeaseUntil = s.now().Add(lease)
				s.events.Put(id, e)
			}
		}
	})
	return nil
}

// List returns every stored event in id order.
func (s *MemoryStore) List(ctx context.Context) []Event {
	var out []Event
	s.db.View(ctx, func() {
		s.events.Scan(func(_ int64, e Event) bool {
			out = append(out, e)
			return true
		})
	})
	slices.SortFunc(out, func(a, b Event) int { return int(a.ID - b.ID) })
	return out
}
