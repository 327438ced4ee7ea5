package aggregator

import (
	"context"
	"sync/atomic"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/pkg/activity"
)

// ctxStore blocks two-day ranges until their context ends and answers
// single-day ranges immediately.
type ctxStore struct {
	started   chan struct{}
	sawCancel atomic.Bool
}

func (s *ctxStore) RequestAuthorization(context.Context, []healthstore.Category) (bool, error) {
	return true, nil
}

func (s *ctxStore) ActivitySummaries(ctx context.Context, days activity.DayRange) ([]activity.Summary, error) {
	if days.Start == days.End {
		return []activity.Summary{{Components: activity.ComponentsOf(days.Start)}}, nil
	}
	s.started <- struct{}{}
	<-ctx.Done()
	if ctx.Err() == context.Canceled {
		s.sawCancel.Store(true)
	}
	return nil, ctx.Err()
}

func (s *ctxStore) Close() error { return nil }
