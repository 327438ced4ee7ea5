package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/mainloop"
	"github.com/brk3/healthdata/internal/output"
	"github.com/brk3/healthdata/pkg/activity"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// gatedStore answers each query once its range has been released, so tests
// decide the order callbacks fire in.
type gatedStore struct {
	mu    sync.Mutex
	data  map[activity.DayRange][]activity.Summary
	errs  map[activity.DayRange]error
	gates map[activity.DayRange]chan struct{}
	calls chan activity.DayRange
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		data:  map[activity.DayRange][]activity.Summary{},
		errs:  map[activity.DayRange]error{},
		gates: map[activity.DayRange]chan struct{}{},
		calls: make(chan activity.DayRange, 16),
	}
}

func (s *gatedStore) gate(days activity.DayRange) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[days]
	if !ok {
		g = make(chan struct{})
		s.gates[days] = g
	}
	return g
}

func (s *gatedStore) release(days activity.DayRange) {
	close(s.gate(days))
}

func (s *gatedStore) RequestAuthorization(context.Context, []healthstore.Category) (bool, error) {
	return true, nil
}

// ActivitySummaries ignores cancellation so a superseded query still calls
// back late, the way a host store callback would.
func (s *gatedStore) ActivitySummaries(_ context.Context, days activity.DayRange) ([]activity.Summary, error) {
	s.calls <- days
	<-s.gate(days)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[days], s.errs[days]
}

func (s *gatedStore) Close() error { return nil }

type fixture struct {
	store   *gatedStore
	display *output.Display
	agg     *Aggregator
	loop    *mainloop.Loop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loop := mainloop.New(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	store := newGatedStore()
	display := output.NewDisplay()
	return &fixture{
		store:   store,
		display: display,
		loop:    loop,
		agg:     New(store, loop, display, Options{Location: time.UTC}),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func rangeOf(start, end time.Time) activity.DateRange {
	return activity.DateRange{Start: start, End: end}
}

func summary(y, m, d int, kcal float64) activity.Summary {
	return activity.Summary{
		Components:         activity.DateComponents{Year: y, Month: m, Day: d},
		ActiveEnergyBurned: activity.Quantity{Value: kcal, Unit: activity.Kilocalorie},
		ExerciseTime:       activity.Quantity{Value: 32.9, Unit: activity.Minute},
		StandHours:         activity.Quantity{Value: 9, Unit: activity.Count},
	}
}

func dates(t *testing.T, text string) []string {
	t.Helper()
	entries, err := activity.Decode(text)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		require.NotNil(t, e.Date)
		out = append(out, *e.Date)
	}
	return out
}

func TestRefresh_PublishesProjectedEntries(t *testing.T) {
	f := newFixture(t)
	r := rangeOf(day(2022, 3, 15), day(2022, 3, 15))
	days := r.Days(time.UTC)
	f.store.data[days] = []activity.Summary{summary(2022, 3, 15, 450.7)}
	f.store.release(days)

	f.agg.Refresh(context.Background(), r)
	f.agg.Wait()

	want := "[\n  {\n    \"date\": \"2022-03-15\",\n    \"move\": 450,\n    \"exercise\": 32,\n    \"stand\": 9\n  }\n]"
	require.Equal(t, want, f.display.Text())
	s, _ := f.display.Status()
	require.Equal(t, output.StatusReady, s)
}

func TestRefresh_EmptyResultKeepsOutput(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.display.Publish("previous"))

	r := rangeOf(day(2022, 1, 1), day(2022, 1, 31))
	f.store.release(r.Days(time.UTC))

	f.agg.Refresh(context.Background(), r)
	f.agg.Wait()

	require.Equal(t, "previous", f.display.Text())
}

func TestRefresh_ErrorKeepsOutputAndReportsStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.display.Publish("previous"))

	r := rangeOf(day(2022, 1, 1), day(2022, 1, 31))
	days := r.Days(time.UTC)
	f.store.errs[days] = errors.New("store offline")
	f.store.release(days)

	before := testutil.ToFloat64(queriesTotal.WithLabelValues(resultError))
	f.agg.Refresh(context.Background(), r)
	f.agg.Wait()

	require.Equal(t, "previous", f.display.Text())
	s, detail := f.display.Status()
	require.Equal(t, output.StatusError, s)
	require.Contains(t, detail, "store offline")
	require.Equal(t, before+1, testutil.ToFloat64(queriesTotal.WithLabelValues(resultError)))
}

func TestRefresh_DropsIncompleteAndKeepsOrder(t *testing.T) {
	f := newFixture(t)
	r := rangeOf(day(2022, 1, 1), day(2022, 1, 3))
	days := r.Days(time.UTC)
	f.store.data[days] = []activity.Summary{
		summary(2022, 1, 3, 1),
		summary(2022, 1, 0, 1),
		summary(2022, 1, 1, 1),
		summary(2022, 1, 2, 1),
	}
	f.store.release(days)

	before := testutil.ToFloat64(summariesDropped)
	f.agg.Refresh(context.Background(), r)
	f.agg.Wait()

	require.Equal(t, []string{"2022-01-03", "2022-01-01", "2022-01-02"}, dates(t, f.display.Text()))
	require.Equal(t, before+1, testutil.ToFloat64(summariesDropped))
}

func TestRefresh_StaleResultDiscarded(t *testing.T) {
	f := newFixture(t)
	r1 := rangeOf(day(2022, 1, 1), day(2022, 1, 1))
	r2 := rangeOf(day(2022, 2, 1), day(2022, 2, 1))
	d1, d2 := r1.Days(time.UTC), r2.Days(time.UTC)
	f.store.data[d1] = []activity.Summary{summary(2022, 1, 1, 100)}
	f.store.data[d2] = []activity.Summary{summary(2022, 2, 1, 200)}

	before := testutil.ToFloat64(staleResults)

	idA := f.agg.Refresh(context.Background(), r1)
	require.Equal(t, d1, <-f.store.calls)
	idB := f.agg.Refresh(context.Background(), r2)
	require.Equal(t, d2, <-f.store.calls)
	require.Greater(t, idB, idA)
	require.Equal(t, idB, f.agg.Latest())

	// B calls back first, A last.
	f.store.release(d2)
	require.Eventually(t, func() bool { return f.display.Text() != "" }, time.Second, time.Millisecond)
	f.store.release(d1)
	f.agg.Wait()

	require.Equal(t, []string{"2022-02-01"}, dates(t, f.display.Text()))
	require.Equal(t, before+1, testutil.ToFloat64(staleResults))
}

func TestRefresh_CancelsSupersededQuery(t *testing.T) {
	f := newFixture(t)
	store := &ctxStore{started: make(chan struct{}, 1)}
	agg := New(store, f.loop, f.display, Options{Location: time.UTC})

	agg.Refresh(context.Background(), rangeOf(day(2022, 1, 1), day(2022, 1, 2)))
	<-store.started
	agg.Refresh(context.Background(), rangeOf(day(2022, 1, 1), day(2022, 1, 1)))
	agg.Wait()

	require.True(t, store.sawCancel.Load())
	require.Equal(t, []string{"2022-01-01"}, dates(t, f.display.Text()))
}

func TestRefresh_Timeout(t *testing.T) {
	f := newFixture(t)
	store := &ctxStore{started: make(chan struct{}, 1)}
	agg := New(store, f.loop, f.display, Options{Location: time.UTC, Timeout: 10 * time.Millisecond})

	agg.Refresh(context.Background(), rangeOf(day(2022, 1, 1), day(2022, 1, 2)))
	agg.Wait()

	s, _ := f.display.Status()
	require.Equal(t, output.StatusError, s)
	require.Empty(t, f.display.Text())
}

func TestRefresh_LoopStopped(t *testing.T) {
	loop := mainloop.New(0)
	loop.Stop()
	store := newGatedStore()
	display := output.NewDisplay()
	agg := New(store, loop, display, Options{})

	r := rangeOf(day(2022, 1, 1), day(2022, 1, 1))
	store.data[r.Days(time.Local)] = []activity.Summary{summary(2022, 1, 1, 1)}
	store.release(r.Days(time.Local))
	agg.Refresh(context.Background(), r)
	agg.Wait()

	require.Empty(t, display.Text())
}

func TestRefresh_WaitReturnsAfterLoopCanceled(t *testing.T) {
	loop := mainloop.New(4)
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- loop.Run(ctx) }()

	// hold the loop so the result queues up behind this task
	release := make(chan struct{})
	busy := make(chan struct{})
	require.True(t, loop.Post(func() {
		close(busy)
		<-release
	}))
	<-busy

	store := newGatedStore()
	display := output.NewDisplay()
	agg := New(store, loop, display, Options{Location: time.UTC})

	r := rangeOf(day(2022, 3, 15), day(2022, 3, 15))
	days := r.Days(time.UTC)
	store.data[days] = []activity.Summary{summary(2022, 3, 15, 450.7)}
	store.release(days)
	agg.Refresh(context.Background(), r)
	<-store.calls
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(release)

	waited := make(chan struct{})
	go func() {
		agg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the loop was canceled")
	}
	require.ErrorIs(t, <-runErr, context.Canceled)
}
