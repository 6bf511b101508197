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

func (s *Store) CreateEntry(ctx context.Context, in EntryInput) (*Entry, error) {
	if !mood.Valid(in.Mood) {
		return nil, fmt.Errorf("create entry: mood %d out of range %d-%d: %w", in.Mood, mood.Min, mood.Max, ErrInvalid)
	}
	now := s.now()
	date := mood.DayKey(now)
	if strings.TrimSpace(in.Date) != "" {
		key, ok := mood.NormalizeKey(in.Date, now.Location())
		if !ok {
			return nil, fmt.Errorf("create entry: date %q: %w", in.Date, ErrInvalid)
		}
		date = key
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entries (date, mood, content, created_at) VALUES (?, ?, ?, ?)`,
			date, in.Mood, in.Content, now.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		id, _ = res.LastInsertId()
		return linkTags(ctx, tx, id, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, id)
}

// UpdateEntry changes the mood, content or tags of an entry. The day an entry
// belongs to never changes.
func (s *Store) UpdateEntry(ctx context.Context, id int64, in EntryUpdate) (*Entry, error) {
	if in.Mood != nil && !mood.Valid(*in.Mood) {
		return nil, fmt.Errorf("update entry %d: mood %d out of range %d-%d: %w", id, *in.Mood, mood.Min, mood.Max, ErrInvalid)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var found int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, id).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update entry %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update entry %d: %w", id, err)
		}

		if in.Mood != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE entries SET mood = ? WHERE id = ?`, *in.Mood, id); err != nil {
				return fmt.Errorf("update entry %d: %w", id, err)
			}
		}
		if in.Content != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE entries SET content = ? WHERE id = ?`, *in.Content, id); err != nil {
				return fmt.Errorf("update entry %d: %w", id, err)
			}
		}
		if in.Tags != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, id); err != nil {
				return fmt.Errorf("clear tags of entry %d: %w", id, err)
			}
			return linkTags(ctx, tx, id, in.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, id)
}

func linkTags(ctx context.Context, tx *sql.Tx, entryID int64, names []string) error {
	for _, name := range normalizeTagNames(names) {
		tagID, err := ensureTag(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entry_tags (entry_id, tag_id) VALUES (?, ?)`, entryID, tagID,
		); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

// normalizeTagNames trims names and drops blanks and exact duplicates. Case is
// preserved: "Work" and "work" are different tags.
func normalizeTagNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func ensureTag(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("insert tag %q: %w", name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("get tag %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, date, mood, content, created_at FROM entries WHERE id = ?`, id,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	entries := []Entry{*e}
	if err := s.attachTags(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete entry %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListEntries returns entries newest first.
func (s *Store) ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	query := `SELECT id, date, mood, content, created_at FROM entries WHERE 1=1`
	var args []any

	if f.From != "" {
		query += ` AND date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND date <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := s.attachTags(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListTags returns every known tag by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*Entry, error) {
	e := &Entry{}
	var createdAt sql.NullString
	if err := r.Scan(&e.ID, &e.Date, &e.Mood, &e.Content, &createdAt); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
			e.CreatedAt = &t
		}
	}
	return e, nil
}

// attachTags fills Selections for every entry in place.
func (s *Store) attachTags(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	index := make(map[int64]int, len(entries))
	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries))
	for i, e := range entries {
		index[e.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, e.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT et.entry_id, t.id, t.name
		FROM entry_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.entry_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY et.entry_id, t.name`, args...)
	if err != nil {
		return fmt.Errorf("list entry tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID int64
		var t Tag
		if err := rows.Scan(&entryID, &t.ID, &t.Name); err != nil {
			return err
		}
		if i, ok := index[entryID]; ok {
			entries[i].Selections = append(entries[i].Selections, t)
		}
	}
	return rows.Err()
}
