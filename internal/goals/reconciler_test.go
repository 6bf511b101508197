package goals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/moodlog/internal/api"
	"github.com/sadopc/moodlog/internal/flags"
	"github.com/sadopc/moodlog/internal/store"
)

var wednesday = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

// fakeBackend answers increments like the server would, or fails while err is set.
type fakeBackend struct {
	mu    sync.Mutex
	calls int
	ids   []string
	err   error
	goal  store.Goal
}

func (f *fakeBackend) IncrementGoalProgress(ctx context.Context, goalID int64) (*store.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ids = append(f.ids, api.RequestID(ctx))
	if f.err != nil {
		return nil, f.err
	}
	g := f.goal
	g.Completed++
	g.Streak = 4
	g.LastCompletedDate = "2024-05-15"
	g.AlreadyCompletedToday = true
	f.goal = g
	return &g, nil
}

func testGoal() store.Goal {
	return store.Goal{ID: 1, Title: "Walk", FrequencyPerWeek: 3, Completed: 1, LastCompletedDate: "2024-05-13"}
}

func newTestReconciler(t *testing.T, fs flags.Store) (*Reconciler, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{goal: testGoal()}
	n := 0
	r := New(backend, fs, WithIDGenerator(func() string {
		n++
		return "attempt-" + string(rune('0'+n))
	}))
	r.Load([]store.Goal{testGoal()})
	return r, backend
}

// ============================================================
// Happy path
// ============================================================

func TestMarkCompleteConfirms(t *testing.T) {
	fs := flags.NewMemory()
	r, backend := newTestReconciler(t, fs)

	out, err := r.MarkComplete(context.Background(), 1, wednesday)
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if out.State != Confirmed || out.Stale {
		t.Fatalf("expected confirmed outcome, got %+v", out)
	}
	if out.Goal.Completed != 2 || out.Goal.Streak != 4 {
		t.Errorf("expected server counters, got %+v", out.Goal)
	}
	if backend.ids[0] != "attempt-1" {
		t.Errorf("expected attempt id to travel with the request, got %q", backend.ids[0])
	}
	if v, ok, _ := fs.Get(FlagKey(1)); !ok || v != "2024-05-15" {
		t.Errorf("expected flag kept after confirmation, got %q ok=%v", v, ok)
	}
	if !r.IsDoneToday(1, wednesday) {
		t.Error("expected goal done today")
	}
}

func TestBeginIsOptimistic(t *testing.T) {
	fs := flags.NewMemory()
	r, backend := newTestReconciler(t, fs)

	a, err := r.Begin(1, wednesday)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if backend.calls != 0 {
		t.Fatal("Begin must not call the backend")
	}
	if !r.IsDoneToday(1, wednesday) {
		t.Error("expected goal done before confirmation")
	}
	if r.State(1, wednesday) != PendingLocalCommit {
		t.Errorf("expected pending, got %s", r.State(1, wednesday))
	}
	g, _ := r.Goal(1)
	if g.LastCompletedDate != "2024-05-15" {
		t.Errorf("expected optimistic last completed date, got %q", g.LastCompletedDate)
	}
	if a.Day != "2024-05-15" || a.GoalID != 1 {
		t.Errorf("unexpected attempt %+v", a)
	}
}

func TestMarkCompleteTwiceSendsOneRequest(t *testing.T) {
	r, backend := newTestReconciler(t, flags.NewMemory())

	if _, err := r.MarkComplete(context.Background(), 1, wednesday); err != nil {
		t.Fatalf("first MarkComplete: %v", err)
	}
	before, _ := r.Goal(1)

	_, err := r.MarkComplete(context.Background(), 1, wednesday.Add(3*time.Hour))
	if !errors.Is(err, ErrAlreadyDone) || !IsNotice(err) {
		t.Fatalf("expected already-done notice, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("expected one request, got %d", backend.calls)
	}
	after, _ := r.Goal(1)
	if after != before {
		t.Errorf("second call changed state: %+v -> %+v", before, after)
	}
}

func TestSecondBeginWhilePendingIsNoop(t *testing.T) {
	r, _ := newTestReconciler(t, flags.NewMemory())
	if _, err := r.Begin(1, wednesday); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := r.Begin(1, wednesday); !errors.Is(err, ErrAlreadyDone) {
		t.Fatalf("expected ErrAlreadyDone, got %v", err)
	}
}

// ============================================================
// Rollback
// ============================================================

func TestFailedIncrementRollsBackAndAllowsRetry(t *testing.T) {
	fs := flags.NewMemory()
	r, backend := newTestReconciler(t, fs)
	backend.err = errors.New("connection refused")

	out, err := r.MarkComplete(context.Background(), 1, wednesday)
	if err == nil || IsNotice(err) {
		t.Fatalf("expected failure, got %v", err)
	}
	if out.State != RolledBack {
		t.Errorf("expected rolled back, got %s", out.State)
	}
	if _, ok, _ := fs.Get(FlagKey(1)); ok {
		t.Error("expected flag cleared after failure")
	}
	if out.Goal.LastCompletedDate != "2024-05-13" {
		t.Errorf("expected last completed date restored, got %q", out.Goal.LastCompletedDate)
	}
	if r.IsDoneToday(1, wednesday) {
		t.Error("expected goal not done after rollback")
	}

	backend.err = nil
	out, err = r.MarkComplete(context.Background(), 1, wednesday)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if out.State != Confirmed || backend.calls != 2 {
		t.Errorf("expected confirmed retry with two calls, got %s and %d", out.State, backend.calls)
	}
}

func TestRollbackKeepsNewerFlag(t *testing.T) {
	fs := flags.NewMemory()
	r, _ := newTestReconciler(t, fs)

	a, err := r.Begin(1, wednesday)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// Another writer moved the flag on.
	_ = fs.Set(FlagKey(1), "2024-05-16")

	r.Finish(a, nil, errors.New("boom"), wednesday)
	if v, _, _ := fs.Get(FlagKey(1)); v != "2024-05-16" {
		t.Errorf("expected newer flag left alone, got %q", v)
	}
}

// ============================================================
// Stale outcomes
// ============================================================

func TestFinishTwiceIsStale(t *testing.T) {
	fs := flags.NewMemory()
	r, _ := newTestReconciler(t, fs)

	a, _ := r.Begin(1, wednesday)
	first := r.Finish(a, nil, errors.New("boom"), wednesday)
	if first.Stale {
		t.Fatal("first finish should not be stale")
	}
	second := r.Finish(a, nil, errors.New("boom"), wednesday)
	if !second.Stale {
		t.Fatal("second finish should be stale")
	}
}

func TestStaleSuccessDoesNotReapplyFlag(t *testing.T) {
	fs := flags.NewMemory()
	r, _ := newTestReconciler(t, fs)

	a, _ := r.Begin(1, wednesday)
	nextDay := wednesday.AddDate(0, 0, 1)
	// A new day starts a fresh attempt before the old one returns.
	if _, err := r.Begin(1, nextDay); err != nil {
		t.Fatalf("Begin next day: %v", err)
	}
	_ = fs.Remove(FlagKey(1))

	late := store.Goal{ID: 1, FrequencyPerWeek: 3, Completed: 2, LastCompletedDate: "2024-05-15"}
	out := r.Finish(a, &late, nil, nextDay)
	if !out.Stale {
		t.Fatal("expected stale outcome")
	}
	if _, ok, _ := fs.Get(FlagKey(1)); ok {
		t.Error("stale outcome must not write the flag")
	}
	if out.Goal.Completed != 2 {
		t.Errorf("expected server counters accepted, got %d", out.Goal.Completed)
	}
	if r.State(1, nextDay) != PendingLocalCommit {
		t.Errorf("expected the newer attempt still pending, got %s", r.State(1, nextDay))
	}
}

// ============================================================
// Guards and degradation
// ============================================================

func TestPeriodComplete(t *testing.T) {
	r, backend := newTestReconciler(t, flags.NewMemory())
	g := testGoal()
	g.Completed = 3
	r.Load([]store.Goal{g})

	_, err := r.MarkComplete(context.Background(), 1, wednesday)
	if !errors.Is(err, ErrPeriodComplete) || !IsNotice(err) {
		t.Fatalf("expected period complete notice, got %v", err)
	}
	if backend.calls != 0 {
		t.Error("expected no request")
	}
}

func TestUnknownGoal(t *testing.T) {
	r, _ := newTestReconciler(t, flags.NewMemory())
	if _, err := r.Begin(42, wednesday); !errors.Is(err, ErrUnknownGoal) || IsNotice(err) {
		t.Fatalf("expected ErrUnknownGoal, got %v", err)
	}
}

func TestServerDateMeansDone(t *testing.T) {
	r, _ := newTestReconciler(t, flags.NewMemory())
	g := testGoal()
	g.LastCompletedDate = "2024-05-15"
	r.Load([]store.Goal{g})

	if !r.IsDoneToday(1, wednesday) {
		t.Error("expected server last completed date to count")
	}
	if r.IsDoneToday(1, wednesday.AddDate(0, 0, 1)) {
		t.Error("expected a new day to start fresh")
	}
}

func TestFlagMeansDoneAcrossRestart(t *testing.T) {
	fs := flags.NewMemory()
	_ = fs.Set(FlagKey(1), "2024-05-15")

	r, backend := newTestReconciler(t, fs)
	if !r.IsDoneToday(1, wednesday) {
		t.Fatal("expected persisted flag to count")
	}
	if _, err := r.MarkComplete(context.Background(), 1, wednesday); !errors.Is(err, ErrAlreadyDone) {
		t.Fatalf("expected ErrAlreadyDone, got %v", err)
	}
	if backend.calls != 0 {
		t.Error("expected no request")
	}
}

func TestDisabledFlagStoreDegrades(t *testing.T) {
	r, backend := newTestReconciler(t, flags.Disabled{})

	out, err := r.MarkComplete(context.Background(), 1, wednesday)
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if out.State != Confirmed || !r.IsDoneToday(1, wednesday) {
		t.Errorf("expected confirmed via server fields, got %s", out.State)
	}
	if _, err := r.MarkComplete(context.Background(), 1, wednesday); !errors.Is(err, ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("expected one request, got %d", backend.calls)
	}
}

func TestDisabledFlagStoreRollback(t *testing.T) {
	r, backend := newTestReconciler(t, nil)
	backend.err = errors.New("offline")

	if _, err := r.MarkComplete(context.Background(), 1, wednesday); err == nil {
		t.Fatal("expected failure")
	}
	if r.IsDoneToday(1, wednesday) {
		t.Error("expected not done after rollback")
	}
}

func TestPruneDropsStaleMarkers(t *testing.T) {
	fs := flags.NewMemory()
	_ = fs.Set(FlagKey(1), "2024-05-15")
	_ = fs.Set(FlagKey(2), "2024-05-15")
	_ = fs.Set(FlagKey(3), "2024-05-10")
	_ = fs.Set("theme", "dark")

	r, _ := newTestReconciler(t, fs)
	third := testGoal()
	third.ID = 3
	r.Load([]store.Goal{testGoal(), third})

	if n := r.Prune(wednesday); n != 2 {
		t.Fatalf("pruned %d markers, want 2", n)
	}
	if v, ok, _ := fs.Get(FlagKey(1)); !ok || v != "2024-05-15" {
		t.Errorf("today's marker of a loaded goal should stay, got %q %v", v, ok)
	}
	for _, id := range []int64{2, 3} {
		if _, ok, _ := fs.Get(FlagKey(id)); ok {
			t.Errorf("marker of goal %d should be gone", id)
		}
	}
	if _, ok, _ := fs.Get("theme"); !ok {
		t.Error("keys that are not done markers should be left alone")
	}
	if !r.IsDoneToday(1, wednesday) {
		t.Error("goal 1 should still be done today")
	}
}

func TestPruneNeedsListableStore(t *testing.T) {
	r, _ := newTestReconciler(t, flags.Disabled{})
	if n := r.Prune(wednesday); n != 0 {
		t.Fatalf("pruned %d markers from a store that cannot list", n)
	}
}

func TestLoadKeepsDayState(t *testing.T) {
	r, _ := newTestReconciler(t, flags.Disabled{})
	if _, err := r.Begin(1, wednesday); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	r.Load([]store.Goal{testGoal()})
	if !r.IsDoneToday(1, wednesday) {
		t.Error("expected pending completion to survive a reload")
	}
	if len(r.Goals()) != 1 {
		t.Errorf("expected one goal, got %d", len(r.Goals()))
	}
}

// ============================================================
// Against the real store
// ============================================================

func TestReconcilerWithStore(t *testing.T) {
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	s.SetClock(func() time.Time { return wednesday })

	ctx := context.Background()
	created, err := s.CreateGoal(ctx, store.GoalInput{Title: "Read", FrequencyPerWeek: 2})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	goals, err := s.ListGoals(ctx)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}

	r := New(s, flags.NewSettings(s))
	r.Load(goals)
	out, err := r.MarkComplete(ctx, created.ID, wednesday)
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if out.Goal.Completed != 1 || !out.Goal.AlreadyCompletedToday {
		t.Errorf("unexpected goal after increment: %+v", out.Goal)
	}
	if v, err := s.GetSetting("flag." + FlagKey(created.ID)); err != nil || v != "2024-05-15" {
		t.Errorf("expected flag in settings, got %q err=%v", v, err)
	}
}
