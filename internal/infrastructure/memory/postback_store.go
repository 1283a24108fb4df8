package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/survey-hub/survey-hub/internal/domain/postback"
)

// PostbackStore is the in-process postback.Deduplicator.
type PostbackStore struct {
	mu      sync.Mutex
	records map[string][]postback.Record
	ttl     time.Duration
	cap     int
}

func NewPostbackStore(ttl time.Duration, capacity int) *PostbackStore {
	if ttl <= 0 {
		ttl = postback.DefaultTTL
	}
	if capacity <= 0 {
		capacity = postback.DefaultCap
	}
	return &PostbackStore{
		records: make(map[string][]postback.Record),
		ttl:     ttl,
		cap:     capacity,
	}
}

func (p *PostbackStore) CheckAndRecord(_ context.Context, userID, fingerprint, currentStepID string, now time.Time) (postback.Verdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := p.pruneLocked(userID, now)
	for _, r := range live {
		if r.Fingerprint == fingerprint {
			return postback.Duplicate, nil
		}
	}

	live = append(live, postback.Record{Fingerprint: fingerprint, SeenAt: now, StepAtTime: currentStepID})
	if len(live) > p.cap {
		slices.SortStableFunc(live, func(a, b postback.Record) int { return a.SeenAt.Compare(b.SeenAt) })
		live = slices.Clone(live[len(live)-p.cap:])
	}
	p.records[userID] = live
	return postback.Accepted, nil
}

func (p *PostbackStore) Entries(_ context.Context, userID string, now time.Time) ([]postback.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.pruneLocked(userID, now)), nil
}

func (p *PostbackStore) Forget(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, userID)
	return nil
}

func (p *PostbackStore) Sweep(_ context.Context, now time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for userID, recs := range p.records {
		before := len(recs)
		live := p.pruneLocked(userID, now)
		removed += before - len(live)
	}
	return removed, nil
}

// pruneLocked drops expired records for userID and returns what is left.
func (p *PostbackStore) pruneLocked(userID string, now time.Time) []postback.Record {
	recs, ok := p.records[userID]
	if !ok {
		return nil
	}
	live := recs[:0]
	for _, r := range recs {
		if now.Sub(r.SeenAt) <= p.ttl {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		delete(p.records, userID)
		return nil
	}
	p.records[userID] = live
	return live
}
