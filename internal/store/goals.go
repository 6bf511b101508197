package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/moodlog/internal/mood"
)

// defaultCompletionWindow is how far back ListGoalCompletions looks when no
// range is given.
const defaultCompletionWindow = 90

const goalColumns = `id, title, description, frequency_per_week, completed, streak,
	period_start, last_completed_date, created_at, updated_at`

// WeekStart returns the day key of the Monday starting t's week.
func WeekStart(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	return mood.DayKey(mood.AddDays(t, -offset))
}

func (s *Store) CreateGoal(ctx context.Context, in GoalInput) (*Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("create goal: title is required: %w", ErrInvalid)
	}
	if in.FrequencyPerWeek < 1 || in.FrequencyPerWeek > 7 {
		return nil, fmt.Errorf("create goal: frequency_per_week must be between 1 and 7, got %d: %w", in.FrequencyPerWeek, ErrInvalid)
	}

	now := s.now()
	ts := now.UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (title, description, frequency_per_week, period_start, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, in.Description, in.FrequencyPerWeek, WeekStart(now), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetGoal(ctx, id)
}

// GetGoal returns the goal, rolling its period over first when a new week has
// started.
func (s *Store) GetGoal(ctx context.Context, id int64) (*Goal, error) {
	var g *Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		g, err = s.loadGoal(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context) ([]Goal, error) {
	var goals []Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY created_at DESC, id DESC`)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		for rows.Next() {
			g, err := scanGoal(rows)
			if err != nil {
				rows.Close()
				return err
			}
			goals = append(goals, *g)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		now := s.now()
		for i := range goals {
			if err := rollover(ctx, tx, &goals[i], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// UpdateGoal changes a goal's definition. Lowering the weekly target caps the
// progress already made this period.
func (s *Store) UpdateGoal(ctx context.Context, id int64, in GoalUpdate) (*Goal, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("update goal %d: title is required: %w", id, ErrInvalid)
	}
	if in.FrequencyPerWeek != nil && (*in.FrequencyPerWeek < 1 || *in.FrequencyPerWeek > 7) {
		return nil, fmt.Errorf("update goal %d: frequency_per_week must be between 1 and 7, got %d: %w", id, *in.FrequencyPerWeek, ErrInvalid)
	}

	var g *Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		g, err = s.loadGoal(ctx, tx, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			g.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			g.Description = *in.Description
		}
		if in.FrequencyPerWeek != nil {
			g.FrequencyPerWeek = *in.FrequencyPerWeek
			g.Completed = min(g.Completed, g.FrequencyPerWeek)
		}
		g.UpdatedAt = s.now().UTC().Truncate(time.Second)

		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET title = ?, description = ?, frequency_per_week = ?, completed = ?, updated_at = ?
			 WHERE id = ?`,
			g.Title, g.Description, g.FrequencyPerWeek, g.Completed, g.UpdatedAt.Format(time.RFC3339), id,
		); err != nil {
			return fmt.Errorf("update goal %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete goal %d: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementGoalProgress records today's completion. The counter only moves
// when the goal was not already completed today and the weekly target is not
// yet met; the returned goal is authoritative.
func (s *Store) IncrementGoalProgress(ctx context.Context, goalID int64) (*Goal, error) {
	var g *Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		g, err = s.loadGoal(ctx, tx, goalID)
		if err != nil {
			return err
		}

		now := s.now()
		today := mood.DayKey(now)
		if g.LastCompletedDate == today {
			return nil
		}
		if g.Completed < g.FrequencyPerWeek {
			g.Completed++
		}
		g.LastCompletedDate = today
		g.AlreadyCompletedToday = true
		g.UpdatedAt = now.UTC().Truncate(time.Second)

		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET completed = ?, last_completed_date = ?, updated_at = ? WHERE id = ?`,
			g.Completed, today, g.UpdatedAt.Format(time.RFC3339), goalID,
		); err != nil {
			return fmt.Errorf("increment goal %d: %w", goalID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO goal_completions (goal_id, date) VALUES (?, ?)`, goalID, today,
		); err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListGoalCompletions returns completion days in [start, end], oldest first.
// When either bound is empty the last 90 days are used.
func (s *Store) ListGoalCompletions(ctx context.Context, goalID int64, start, end string) ([]Completion, error) {
	if start == "" || end == "" {
		now := s.now()
		end = mood.DayKey(now)
		start = mood.DayKey(mood.AddDays(now, -defaultCompletionWindow))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT goal_id, date FROM goal_completions
		 WHERE goal_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date ASC`, goalID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.GoalID, &c.Date); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadGoal(ctx context.Context, tx *sql.Tx, id int64) (*Goal, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get goal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal %d: %w", id, err)
	}
	if err := rollover(ctx, tx, g, s.now()); err != nil {
		return nil, err
	}
	return g, nil
}

// rollover starts a new weekly period when the stored one is stale. The
// streak grows when the finished period met its target and resets otherwise.
func rollover(ctx context.Context, tx *sql.Tx, g *Goal, now time.Time) error {
	start := WeekStart(now)
	if g.PeriodStart != start {
		if g.Met() {
			g.Streak++
		} else {
			g.Streak = 0
		}
		g.Completed = 0
		g.PeriodStart = start
		g.UpdatedAt = now.UTC().Truncate(time.Second)

		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET completed = 0, streak = ?, period_start = ?, updated_at = ? WHERE id = ?`,
			g.Streak, start, g.UpdatedAt.Format(time.RFC3339), g.ID,
		); err != nil {
			return fmt.Errorf("rollover goal %d: %w", g.ID, err)
		}
	}
	g.AlreadyCompletedToday = g.LastCompletedDate == mood.DayKey(now)
	return nil
}

func scanGoal(r rowScanner) (*Goal, error) {
	g := &Goal{}
	var lastCompleted sql.NullString
	var createdAt, updatedAt string
	if err := r.Scan(&g.ID, &g.Title, &g.Description, &g.FrequencyPerWeek, &g.Completed, &g.Streak,
		&g.PeriodStart, &lastCompleted, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if lastCompleted.Valid {
		g.LastCompletedDate = lastCompleted.String
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return g, nil
}
