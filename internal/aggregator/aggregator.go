// Package aggregator turns a date range into published export text.
//
// Each Refresh runs one range query against the injected store on its own
// goroutine. Results travel back to the main loop, where anything but the
// most recently requested range is thrown away before publishing.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/logger"
	"github.com/brk3/healthdata/internal/mainloop"
	"github.com/brk3/healthdata/internal/output"
	"github.com/brk3/healthdata/pkg/activity"
)

type Options struct {
	// Location is the calendar used to turn range instants into days.
	// Defaults to time.Local.
	Location *time.Location
	// Timeout bounds each query. Zero waits indefinitely.
	Timeout time.Duration
}

type Aggregator struct {
	store   healthstore.Store
	loop    *mainloop.Loop
	out     output.Publisher
	loc     *time.Location
	timeout time.Duration

	latest   atomic.Uint64
	mu       sync.Mutex
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func New(store healthstore.Store, loop *mainloop.Loop, out output.Publisher, opts Options) *Aggregator {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		store:   store,
		loop:    loop,
		out:     out,
		loc:     loc,
		timeout: opts.Timeout,
	}
}

type result struct {
	id      uint64
	days    activity.DayRange
	count   int
	entries int
	text    string
	err     error
}

// Refresh starts a query for r and returns its request id without waiting.
// Any query still running for an earlier range is canceled.
func (a *Aggregator) Refresh(ctx context.Context, r activity.DateRange) uint64 {
	days := r.Days(a.loc)

	var qctx context.Context
	var cancel context.CancelFunc
	if a.timeout > 0 {
		qctx, cancel = context.WithTimeout(ctx, a.timeout)
	} else {
		qctx, cancel = context.WithCancel(ctx)
	}

	a.mu.Lock()
	id := a.latest.Add(1)
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = cancel
	a.mu.Unlock()

	logger.Debug("Starting range query", "request_id", id, "range", days.String())

	a.inflight.Add(1)
	go a.run(qctx, cancel, id, days)
	return id
}

// Latest is the id of the most recent Refresh.
func (a *Aggregator) Latest() uint64 {
	return a.latest.Load()
}

// Wait blocks until every query started so far has been delivered to the
// main loop or dropped.
func (a *Aggregator) Wait() {
	a.inflight.Wait()
}

func (a *Aggregator) run(ctx context.Context, cancel context.CancelFunc, id uint64, days activity.DayRange) {
	defer cancel()

	start := time.Now()
	sums, err := a.store.ActivitySummaries(ctx, days)
	queryDuration.Observe(time.Since(start).Seconds())

	res := result{id: id, days: days, err: err, count: len(sums)}
	if err == nil && len(sums) > 0 {
		entries := activity.ProjectAll(sums)
		if dropped := len(sums) - len(entries); dropped > 0 {
			summariesDropped.Add(float64(dropped))
			logger.Debug("Skipped summaries with incomplete dates", "request_id", id, "dropped", dropped)
		}
		res.entries = len(entries)
		res.text, res.err = activity.Encode(entries)
	}

	if !a.loop.Post(func() {
		defer a.inflight.Done()
		a.deliver(res)
	}) {
		logger.Debug("Main loop stopped, dropping result", "request_id", id)
		a.inflight.Done()
	}
}

// deliver runs on the main loop.
func (a *Aggregator) deliver(res result) {
	log := logger.With("request_id", res.id, "range", res.days.String())

	if res.id != a.latest.Load() {
		staleResults.Inc()
		queriesTotal.WithLabelValues(resultStale).Inc()
		log.Debug("Discarding result for superseded range", "latest", a.latest.Load())
		return
	}

	switch {
	case errors.Is(res.err, context.Canceled):
		queriesTotal.WithLabelValues(resultCanceled).Inc()
		log.Debug("Range query canceled")
	case res.err != nil:
		queriesTotal.WithLabelValues(resultError).Inc()
		log.Error("Range query failed, keeping previous output", "error", res.err)
		output.ReportStatus(a.out, output.StatusError, res.err.Error())
	case res.count == 0:
		queriesTotal.WithLabelValues(resultEmpty).Inc()
		log.Debug("No summaries in range, keeping previous output")
	default:
		if err := a.out.Publish(res.text); err != nil {
			queriesTotal.WithLabelValues(resultError).Inc()
			log.Error("Failed to publish output", "error", err)
			output.ReportStatus(a.out, output.StatusError, err.Error())
			return
		}
		queriesTotal.WithLabelValues(resultPublished).Inc()
		entriesPublished.Add(float64(res.entries))
		log.Info("Published activity entries", "summaries", res.count, "entries", res.entries)
	}
}
