// Package session ties the authorization gate, the aggregator and the date
// range the user is editing together.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/brk3/healthdata/internal/aggregator"
	"github.com/brk3/healthdata/internal/authgate"
	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/mainloop"
	"github.com/brk3/healthdata/internal/output"
	"github.com/brk3/healthdata/pkg/activity"
)

// Session holds the current range. Every edit calls Refresh explicitly.
type Session struct {
	agg  *aggregator.Aggregator
	gate *authgate.Gate

	mu  sync.Mutex
	rng activity.DateRange
}

func New(store healthstore.Store, loop *mainloop.Loop, out output.Publisher, opts aggregator.Options, initial activity.DateRange) *Session {
	s := &Session{
		agg: aggregator.New(store, loop, out, opts),
		rng: initial,
	}
	s.gate = authgate.New(store, loop, out, func(ctx context.Context) {
		s.Refresh(ctx)
	})
	return s
}

// Today is the default range: a single day, now.
func Today() activity.DateRange {
	now := time.Now()
	return activity.DateRange{Start: now, End: now}
}

// Open asks for read access and then queries the current range.
func (s *Session) Open(ctx context.Context) authgate.Outcome {
	return s.gate.RequestAccess(ctx)
}

func (s *Session) Range() activity.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

func (s *Session) SetStart(ctx context.Context, t time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Start = t
	return s.agg.Refresh(ctx, s.rng)
}

func (s *Session) SetEnd(ctx context.Context, t time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.End = t
	return s.agg.Refresh(ctx, s.rng)
}

func (s *Session) SetRange(ctx context.Context, r activity.DateRange) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = r
	return s.agg.Refresh(ctx, s.rng)
}

// Refresh queries whatever range is current at the time of the call. Ids are
// taken under the same lock as range edits, so the newest id always belongs
// to the newest range.
func (s *Session) Refresh(ctx context.Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Refresh(ctx, s.rng)
}

// Wait blocks until all queries issued so far have been delivered.
func (s *Session) Wait() {
	s.agg.Wait()
}
