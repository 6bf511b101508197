package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sadopc/moodlog/internal/api"
	"github.com/sadopc/moodlog/internal/store"
)

var wednesday = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	st.SetClock(func() time.Time { return wednesday })

	srv := New(Config{LogOutput: io.Discard, Now: func() time.Time { return wednesday }}, st)
	return srv, st
}

func do(t *testing.T, srv *Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"ok"`)) {
		t.Errorf("unexpected body %s", body)
	}
	if resp.Header.Get(api.RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

// ============================================================
// Entries
// ============================================================

func TestCreateAndListEntries(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/mood", store.EntryInput{Date: "2024-05-14", Mood: 4, Content: "fine", Tags: []string{"work"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created store.Entry
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Date != "2024-05-14" || len(created.Selections) != 1 {
		t.Errorf("unexpected entry %+v", created)
	}

	resp, body = do(t, srv, http.MethodGet, "/api/mood?from=2024-05-01&to=2024-05-31", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var entries []store.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != created.ID {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestListEntriesEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	_, body := do(t, srv, http.MethodGet, "/api/mood", nil)
	if string(bytes.TrimSpace(body)) != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodPost, "/api/mood", store.EntryInput{Mood: 9})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"error"`)) {
		t.Errorf("expected error body, got %s", body)
	}
}

func TestStatistics(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	for _, in := range []store.EntryInput{
		{Date: "2024-05-15", Mood: 5},
		{Date: "2024-05-14", Mood: 3},
		{Date: "2024-05-10", Mood: 5},
	} {
		if _, err := st.CreateEntry(ctx, in); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}

	_, body := do(t, srv, http.MethodGet, "/api/mood/statistics", nil)
	var got api.Statistics
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Statistics.TotalEntries != 3 {
		t.Errorf("expected 3 entries, got %d", got.Statistics.TotalEntries)
	}
	if got.Statistics.AverageMood < 4.33 || got.Statistics.AverageMood > 4.34 {
		t.Errorf("expected average 4.33, got %v", got.Statistics.AverageMood)
	}
	if got.MoodDistribution[5] != 2 || got.MoodDistribution[1] != 0 {
		t.Errorf("unexpected distribution %v", got.MoodDistribution)
	}
	if got.CurrentStreak != 2 {
		t.Errorf("expected streak 2, got %d", got.CurrentStreak)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	srv, st := newTestServer(t)
	e, err := st.CreateEntry(context.Background(), store.EntryInput{Mood: 2, Content: "meh", Tags: []string{"work"}})
	if err != nil {
		t.Fatal(err)
	}

	resp, body := do(t, srv, http.MethodPut, "/api/mood/"+itoa(e.ID), map[string]any{"mood": 5, "tags": []string{"beach"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var got store.Entry
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mood != 5 || got.Content != "meh" || len(got.Selections) != 1 || got.Selections[0].Name != "beach" {
		t.Errorf("unexpected entry %+v", got)
	}

	resp, _ = do(t, srv, http.MethodPatch, "/api/mood/"+itoa(e.ID), map[string]any{"mood": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for mood 0, got %d", resp.StatusCode)
	}

	_, body = do(t, srv, http.MethodGet, "/api/tags", nil)
	var tags []store.Tag
	if err := json.Unmarshal(body, &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("expected both tags to be listed, got %+v", tags)
	}

	resp, _ = do(t, srv, http.MethodDelete, "/api/mood/"+itoa(e.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodDelete, "/api/mood/"+itoa(e.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodDelete, "/api/mood/abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ============================================================
// Goals
// ============================================================

func TestGoalLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/goals", store.GoalInput{Title: "Walk", FrequencyPerWeek: 3})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var g store.Goal
	if err := json.Unmarshal(body, &g); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp, body = do(t, srv, http.MethodPost, "/api/goals/"+itoa(g.ID)+"/progress", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var inc store.Goal
	if err := json.Unmarshal(body, &inc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inc.Completed != 1 || !inc.AlreadyCompletedToday || inc.LastCompletedDate != "2024-05-15" {
		t.Errorf("unexpected goal after increment %+v", inc)
	}

	// Same day again: no double count.
	_, body = do(t, srv, http.MethodPost, "/api/goals/"+itoa(g.ID)+"/progress", nil)
	_ = json.Unmarshal(body, &inc)
	if inc.Completed != 1 {
		t.Errorf("expected completed to stay 1, got %d", inc.Completed)
	}

	_, body = do(t, srv, http.MethodGet, "/api/goals/"+itoa(g.ID)+"/completions", nil)
	var completions []store.Completion
	if err := json.Unmarshal(body, &completions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(completions) != 1 || completions[0].Date != "2024-05-15" {
		t.Errorf("unexpected completions %+v", completions)
	}

	resp, _ = do(t, srv, http.MethodDelete, "/api/goals/"+itoa(g.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodDelete, "/api/goals/"+itoa(g.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestUpdateGoal(t *testing.T) {
	srv, st := newTestServer(t)
	g, err := st.CreateGoal(context.Background(), store.GoalInput{Title: "Walk", FrequencyPerWeek: 3})
	if err != nil {
		t.Fatal(err)
	}

	resp, body := do(t, srv, http.MethodPatch, "/api/goals/"+itoa(g.ID), map[string]any{"frequency_per_week": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var got store.Goal
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FrequencyPerWeek != 5 || got.Title != "Walk" {
		t.Errorf("unexpected goal %+v", got)
	}

	resp, _ = do(t, srv, http.MethodPut, "/api/goals/"+itoa(g.ID), map[string]any{"frequency_per_week": 9})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad frequency, got %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodPut, "/api/goals/99", map[string]any{"title": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIncrementUnknownGoal(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := do(t, srv, http.MethodPost, "/api/goals/99/progress", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodPost, "/api/goals/abc/progress", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.Header.Set(api.RequestIDHeader, "attempt-7")
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(api.RequestIDHeader); got != "attempt-7" {
		t.Errorf("expected attempt-7, got %q", got)
	}
}

// ============================================================
// Client round trip
// ============================================================

func TestClientAgainstServer(t *testing.T) {
	srv, st := newTestServer(t)
	ln := httptest.NewServer(srv.Handler())
	t.Cleanup(ln.Close)

	ctx := context.Background()
	g, err := st.CreateGoal(ctx, store.GoalInput{Title: "Read", FrequencyPerWeek: 2})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	c := &api.Client{BaseURL: ln.URL, HTTPClient: ln.Client()}
	goals, err := c.ListGoals(ctx)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 1 || goals[0].ID != g.ID {
		t.Fatalf("unexpected goals %+v", goals)
	}
	inc, err := c.IncrementGoalProgress(ctx, g.ID)
	if err != nil {
		t.Fatalf("IncrementGoalProgress: %v", err)
	}
	if inc.Completed != 1 {
		t.Errorf("expected completed 1, got %d", inc.Completed)
	}

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	title := "Read more"
	updated, err := c.UpdateGoal(ctx, g.ID, store.GoalUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	if updated.Title != title || updated.Completed != 1 {
		t.Errorf("unexpected updated goal %+v", updated)
	}

	e, err := c.CreateEntry(ctx, store.EntryInput{Mood: 3, Content: "fine", Tags: []string{"tea"}})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	content := "fine, then good"
	edited, err := c.UpdateEntry(ctx, e.ID, store.EntryUpdate{Content: &content})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if edited.Content != content || len(edited.Selections) != 1 {
		t.Errorf("content should change and tags stay: %+v", edited)
	}
	tags, err := c.ListTags(ctx)
	if err != nil || len(tags) != 1 || tags[0].Name != "tea" {
		t.Fatalf("ListTags = %+v, %v", tags, err)
	}
	if err := c.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := c.DeleteEntry(ctx, e.ID); err == nil {
		t.Fatal("expected an error deleting a missing entry")
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
