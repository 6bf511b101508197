// Package goals tracks whether each goal has been completed today. A
// completion is shown immediately, remembered in a durable flag store, sent to
// the backend, and then either confirmed with the backend's numbers or rolled
// back.
package goals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/moodlog/internal/api"
	"github.com/sadopc/moodlog/internal/flags"
	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

var (
	ErrUnknownGoal    = errors.New("unknown goal")
	ErrAlreadyDone    = errors.New("already completed today")
	ErrPeriodComplete = errors.New("weekly target already reached")
)

// IsNotice reports whether err is informational rather than a failure.
func IsNotice(err error) bool {
	return errors.Is(err, ErrAlreadyDone) || errors.Is(err, ErrPeriodComplete)
}

// Incrementer is the backend call the reconciler needs.
type Incrementer interface {
	IncrementGoalProgress(ctx context.Context, goalID int64) (*store.Goal, error)
}

// State is the reconciliation state of a goal for one day.
type State int

const (
	NotStarted State = iota
	PendingLocalCommit
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case PendingLocalCommit:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	default:
		return "not started"
	}
}

// FlagKey is the flag store key remembering the day a goal was last marked done.
func FlagKey(goalID int64) string {
	return flagPrefix + strconv.FormatInt(goalID, 10)
}

const flagPrefix = "goal_done_"

// Attempt is one in-flight completion, created by Begin.
type Attempt struct {
	ID     string
	GoalID int64
	Day    string

	prevLastCompleted string
	seq               uint64
}

// Outcome is the result of finishing an attempt.
type Outcome struct {
	AttemptID string
	GoalID    int64
	State     State
	Goal      store.Goal
	// Stale is set when a newer attempt or a new day superseded this one.
	Stale bool
	Err   error
}

type tracker struct {
	day       string
	state     State
	doneToday bool
	seq       uint64
}

type Option func(*Reconciler)

// WithLogger routes flag store failures to l. They are discarded by default.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithIDGenerator replaces the attempt ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) { r.newID = fn }
}

// Reconciler holds the client's view of the goals and the per-day state of
// each. It is safe for concurrent use.
type Reconciler struct {
	backend Incrementer
	flags   flags.Store
	logger  *log.Logger
	newID   func() string

	mu    sync.Mutex
	goals map[int64]*store.Goal
	order []int64
	track map[int64]*tracker
	seq   uint64
}

// New returns a reconciler. A nil flag store behaves like flags.Disabled.
func New(backend Incrementer, fs flags.Store, opts ...Option) *Reconciler {
	if fs == nil {
		fs = flags.Disabled{}
	}
	r := &Reconciler{
		backend: backend,
		flags:   fs,
		logger:  log.New(io.Discard, "", 0),
		newID:   uuid.NewString,
		goals:   make(map[int64]*store.Goal),
		track:   make(map[int64]*tracker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the goal list with a fresh copy from the backend. Per-day
// state survives the reload.
func (r *Reconciler) Load(goals []store.Goal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.goals = make(map[int64]*store.Goal, len(goals))
	r.order = r.order[:0]
	for i := range goals {
		g := goals[i]
		r.goals[g.ID] = &g
		r.order = append(r.order, g.ID)
	}
}

// Prune removes done markers that can no longer match: those of goals missing
// from the last Load and those left over from earlier days. Stores that cannot
// list their keys are left alone. It returns the number of markers removed.
func (r *Reconciler) Prune(now time.Time) int {
	lister, ok := r.flags.(flags.Lister)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	today := mood.DayKey(now)
	removed := 0
	for _, key := range lister.Keys() {
		raw, ok := strings.CutPrefix(key, flagPrefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if _, loaded := r.goals[id]; loaded && r.flagIs(id, today) {
			continue
		}
		if err := r.flags.Remove(key); err != nil {
			r.logger.Printf("goals: remove stale flag %q: %v", key, err)
			continue
		}
		removed++
	}
	return removed
}

// Goals returns copies of the loaded goals in load order.
func (r *Reconciler) Goals() []store.Goal {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]store.Goal, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.goals[id])
	}
	return out
}

// Goal returns a copy of one loaded goal.
func (r *Reconciler) Goal(goalID int64) (store.Goal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.goals[goalID]
	if !ok {
		return store.Goal{}, false
	}
	return *g, true
}

// State returns the goal's state for the day of now.
func (r *Reconciler) State(goalID int64, now time.Time) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackerFor(goalID, mood.DayKey(now)).state
}

// IsDoneToday reports whether the goal counts as completed on now's day. The
// durable flag, the goal's last completion date and the in-memory state are
// each sufficient.
func (r *Reconciler) IsDoneToday(goalID int64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDone(goalID, mood.DayKey(now))
}

func (r *Reconciler) isDone(goalID int64, today string) bool {
	if r.flagIs(goalID, today) {
		return true
	}
	if g, ok := r.goals[goalID]; ok {
		if key, ok := mood.NormalizeKey(g.LastCompletedDate, time.Local); ok && key == today {
			return true
		}
	}
	t, ok := r.track[goalID]
	return ok && t.day == today && t.doneToday
}

// Begin applies the optimistic completion and returns the attempt to send.
// It fails with a notice error when there is nothing to do.
func (r *Reconciler) Begin(goalID int64, now time.Time) (*Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.goals[goalID]
	if !ok {
		return nil, fmt.Errorf("goal %d: %w", goalID, ErrUnknownGoal)
	}
	today := mood.DayKey(now)
	if r.isDone(goalID, today) {
		return nil, fmt.Errorf("%s: %w", g.Title, ErrAlreadyDone)
	}
	if g.FrequencyPerWeek > 0 && g.Completed >= g.FrequencyPerWeek {
		return nil, fmt.Errorf("%s: %w", g.Title, ErrPeriodComplete)
	}

	if err := r.flags.Set(FlagKey(goalID), today); err != nil {
		r.logger.Printf("goals: set flag for goal %d: %v", goalID, err)
	}

	t := r.trackerFor(goalID, today)
	r.seq++
	t.seq = r.seq
	t.state = PendingLocalCommit
	t.doneToday = true

	a := &Attempt{
		ID:                r.newID(),
		GoalID:            goalID,
		Day:               today,
		prevLastCompleted: g.LastCompletedDate,
		seq:               t.seq,
	}
	g.LastCompletedDate = today
	return a, nil
}

// Send issues the increment for a. It does not touch reconciler state and may
// run on any goroutine.
func (r *Reconciler) Send(ctx context.Context, a *Attempt) (*store.Goal, error) {
	return r.backend.IncrementGoalProgress(api.WithRequestID(ctx, a.ID), a.GoalID)
}

// Finish applies the backend's answer to a. On success the backend's counters
// replace the local ones. On failure the optimistic change is undone.
func (r *Reconciler) Finish(a *Attempt, result *store.Goal, err error, now time.Time) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Outcome{AttemptID: a.ID, GoalID: a.GoalID, Err: err}
	g, ok := r.goals[a.GoalID]
	t := r.track[a.GoalID]
	// A finished attempt clears seq, so finishing it twice is also stale.
	stale := t == nil || t.seq != a.seq || t.day != a.Day

	if stale {
		out.Stale = true
		if err == nil && ok && result != nil {
			applyServer(g, result)
		}
		if t != nil {
			out.State = t.state
		}
		if ok {
			out.Goal = *g
		}
		return out
	}

	today := mood.DayKey(now)
	if err == nil {
		if ok && result != nil {
			applyServer(g, result)
		}
		t.doneToday = (result != nil && result.AlreadyCompletedToday) || r.flagIs(a.GoalID, today)
		t.state = Confirmed
	} else {
		if r.flagIs(a.GoalID, a.Day) {
			if rerr := r.flags.Remove(FlagKey(a.GoalID)); rerr != nil {
				r.logger.Printf("goals: clear flag for goal %d: %v", a.GoalID, rerr)
			}
		}
		if ok {
			g.LastCompletedDate = a.prevLastCompleted
		}
		t.doneToday = r.flagIs(a.GoalID, today)
		t.state = RolledBack
	}
	t.seq = 0

	out.State = t.state
	if ok {
		out.Goal = *g
	}
	return out
}

// MarkComplete runs Begin, Send and Finish in sequence.
func (r *Reconciler) MarkComplete(ctx context.Context, goalID int64, now time.Time) (Outcome, error) {
	a, err := r.Begin(goalID, now)
	if err != nil {
		out := Outcome{GoalID: goalID, State: r.State(goalID, now), Err: err}
		if g, ok := r.Goal(goalID); ok {
			out.Goal = g
		}
		return out, err
	}
	result, err := r.Send(ctx, a)
	out := r.Finish(a, result, err, now)
	if out.Err != nil {
		return out, fmt.Errorf("increment goal %d: %w", goalID, out.Err)
	}
	return out, nil
}

func applyServer(g, result *store.Goal) {
	g.Completed = result.Completed
	g.FrequencyPerWeek = result.FrequencyPerWeek
	g.Streak = result.Streak
	g.LastCompletedDate = result.LastCompletedDate
	g.AlreadyCompletedToday = result.AlreadyCompletedToday
	if result.PeriodStart != "" {
		g.PeriodStart = result.PeriodStart
	}
}

// trackerFor returns the goal's tracker for day, resetting it when the day
// has moved on.
func (r *Reconciler) trackerFor(goalID int64, day string) *tracker {
	t, ok := r.track[goalID]
	if !ok || t.day != day {
		t = &tracker{day: day}
		r.track[goalID] = t
	}
	return t
}

// flagIs reports whether the durable flag for goalID equals day. Store
// failures read as "not set".
func (r *Reconciler) flagIs(goalID int64, day string) bool {
	v, ok, err := r.flags.Get(FlagKey(goalID))
	if err != nil {
		if !errors.Is(err, flags.ErrUnavailable) {
			r.logger.Printf("goals: read flag for goal %d: %v", goalID, err)
		}
		return false
	}
	return ok && v == day
}
