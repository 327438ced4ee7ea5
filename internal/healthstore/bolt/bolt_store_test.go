package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/pkg/activity"
)

type countingPrompter struct {
	calls   int
	answer  bool
	err     error
	lastSet []healthstore.Category
}

func (p *countingPrompter) Confirm(_ context.Context, categories []healthstore.Category) (bool, error) {
	p.calls++
	p.lastSet = categories
	return p.answer, p.err
}

func newTestStore(t *testing.T, profile string, p healthstore.Prompter) (*Store, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath, profile, p)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	}

	return store, cleanup
}

func summary(y, m, d int, kcal float64) activity.Summary {
	return activity.Summary{
		Components:         activity.DateComponents{Year: y, Month: m, Day: d},
		ActiveEnergyBurned: activity.Quantity{Value: kcal, Unit: activity.Kilocalorie},
		ExerciseTime:       activity.Quantity{Value: 30, Unit: activity.Minute},
		StandHours:         activity.Quantity{Value: 10, Unit: activity.Count},
	}
}

func march(from, to int) activity.DayRange {
	return activity.DayRange{
		Start: activity.Date{Year: 2022, Month: 3, Day: from},
		End:   activity.Date{Year: 2022, Month: 3, Day: to},
	}
}

func grant(t *testing.T, s *Store) {
	t.Helper()
	ok, err := s.RequestAuthorization(context.Background(), healthstore.ReadCategories)
	if err != nil || !ok {
		t.Fatalf("RequestAuthorization = %v, %v; want granted", ok, err)
	}
}

func TestOpen(t *testing.T) {
	store, cleanup := newTestStore(t, "", nil)
	defer cleanup()

	if store == nil {
		t.Fatal("expected non-nil store")
	}
	if store.profile != defaultProfile {
		t.Fatalf("profile = %q, want %q", store.profile, defaultProfile)
	}
}

func TestActivitySummaries_Empty(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", healthstore.StaticPrompter(true))
	defer cleanup()
	grant(t, store)

	sums, err := store.ActivitySummaries(context.Background(), march(1, 31))
	if err != nil {
		t.Fatalf("ActivitySummaries failed: %v", err)
	}
	if len(sums) != 0 {
		t.Fatalf("expected empty list, got %d items", len(sums))
	}
}

func TestActivitySummaries_InclusiveRangeInOrder(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", healthstore.StaticPrompter(true))
	defer cleanup()
	grant(t, store)

	// inserted out of order on purpose
	for _, d := range []int{20, 14, 15, 17, 21} {
		if err := store.PutSummary(context.Background(), summary(2022, 3, d, float64(d))); err != nil {
			t.Fatalf("PutSummary failed: %v", err)
		}
	}

	sums, err := store.ActivitySummaries(context.Background(), march(15, 20))
	if err != nil {
		t.Fatalf("ActivitySummaries failed: %v", err)
	}
	want := []int{15, 17, 20}
	if len(sums) != len(want) {
		t.Fatalf("got %d summaries, want %d", len(sums), len(want))
	}
	for i, d := range want {
		if sums[i].Components.Day != d {
			t.Errorf("summary %d day = %d, want %d", i, sums[i].Components.Day, d)
		}
	}
}

func TestActivitySummaries_InvertedRange(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", healthstore.StaticPrompter(true))
	defer cleanup()
	grant(t, store)

	if err := store.PutSummary(context.Background(), summary(2022, 3, 17, 1)); err != nil {
		t.Fatal(err)
	}
	sums, err := store.ActivitySummaries(context.Background(), march(20, 15))
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 0 {
		t.Fatalf("inverted range returned %d summaries", len(sums))
	}
}

func TestActivitySummaries_NotAuthorized(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", healthstore.StaticPrompter(false))
	defer cleanup()

	if err := store.PutSummary(context.Background(), summary(2022, 3, 17, 1)); err != nil {
		t.Fatal(err)
	}

	// never asked
	sums, err := store.ActivitySummaries(context.Background(), march(1, 31))
	if err != nil || len(sums) != 0 {
		t.Fatalf("got %d summaries, err %v; want empty, nil", len(sums), err)
	}

	ok, err := store.RequestAuthorization(context.Background(), healthstore.ReadCategories)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected denial")
	}
	sums, err = store.ActivitySummaries(context.Background(), march(1, 31))
	if err != nil || len(sums) != 0 {
		t.Fatalf("got %d summaries, err %v; want empty, nil", len(sums), err)
	}
}

func TestRequestAuthorization_PromptsOnce(t *testing.T) {
	p := &countingPrompter{answer: true}
	store, cleanup := newTestStore(t, "runner", p)
	defer cleanup()

	for i := 0; i < 3; i++ {
		ok, err := store.RequestAuthorization(context.Background(), healthstore.ReadCategories)
		if err != nil || !ok {
			t.Fatalf("call %d: %v, %v", i, ok, err)
		}
	}
	if p.calls != 1 {
		t.Fatalf("prompted %d times, want 1", p.calls)
	}
	if len(p.lastSet) != len(healthstore.ReadCategories) {
		t.Fatalf("prompted for %d categories, want %d", len(p.lastSet), len(healthstore.ReadCategories))
	}

	if err := store.Revoke(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RequestAuthorization(context.Background(), healthstore.ReadCategories); err != nil {
		t.Fatal(err)
	}
	if p.calls != 2 {
		t.Fatalf("prompted %d times after revoke, want 2", p.calls)
	}
}

func TestRequestAuthorization_PromptError(t *testing.T) {
	p := &countingPrompter{err: errors.New("no terminal")}
	store, cleanup := newTestStore(t, "runner", p)
	defer cleanup()

	if _, err := store.RequestAuthorization(context.Background(), healthstore.ReadCategories); err == nil {
		t.Fatal("expected prompt error")
	}

	// nothing recorded, so the next call prompts again
	p.err = nil
	p.answer = true
	ok, err := store.RequestAuthorization(context.Background(), healthstore.ReadCategories)
	if err != nil || !ok {
		t.Fatalf("got %v, %v; want granted", ok, err)
	}
	if p.calls != 2 {
		t.Fatalf("prompted %d times, want 2", p.calls)
	}
}

func TestProfileIsolation(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "shared.db")

	alice, err := Open(dbPath, "alice", healthstore.StaticPrompter(true))
	if err != nil {
		t.Fatal(err)
	}
	grant(t, alice)
	if err := alice.PutSummary(context.Background(), summary(2022, 3, 17, 1)); err != nil {
		t.Fatal(err)
	}
	if err := alice.Close(); err != nil {
		t.Fatal(err)
	}

	bob, err := Open(dbPath, "bob", healthstore.StaticPrompter(true))
	if err != nil {
		t.Fatal(err)
	}
	defer bob.Close()
	grant(t, bob)

	sums, err := bob.ActivitySummaries(context.Background(), march(1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 0 {
		t.Fatalf("bob should see no summaries, got %d", len(sums))
	}
}

func TestPutSummary_IncompleteDate(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", nil)
	defer cleanup()

	err := store.PutSummary(context.Background(), summary(2022, 3, 0, 1))
	if !errors.Is(err, ErrIncompleteDate) {
		t.Fatalf("got %v, want ErrIncompleteDate", err)
	}
}

func TestPutSummaries_YearOutOfRange(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", nil)
	defer cleanup()

	err := store.PutSummaries(context.Background(), []activity.Summary{summary(10000, 1, 1, 1)})
	if !errors.Is(err, healthstore.ErrIncompleteDate) {
		t.Fatalf("got %v, want ErrIncompleteDate", err)
	}
}

func TestPutSummaries_Canceled(t *testing.T) {
	store, cleanup := newTestStore(t, "runner", nil)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.PutSummaries(ctx, []activity.Summary{summary(2022, 3, 17, 1)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
