package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sadopc/moodlog/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
}

func TestListEntriesSendsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mood" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("from") != "2024-05-01" || q.Get("to") != "2024-05-31" || q.Get("limit") != "10" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":3,"date":"2024-05-15","mood":4,"content":"ok","selections":[{"id":1,"name":"work"}]}]`))
	})

	entries, err := c.ListEntries(context.Background(), store.EntryFilter{From: "2024-05-01", To: "2024-05-31", Limit: 10})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Mood != 4 || entries[0].Selections[0].Name != "work" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].CreatedAt != nil {
		t.Errorf("expected nil created_at, got %v", entries[0].CreatedAt)
	}
}

func TestCreateEntryPostsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var in store.EntryInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if in.Mood != 5 || len(in.Tags) != 2 {
			t.Errorf("unexpected input %+v", in)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9,"date":"2024-05-15","mood":5}`))
	})

	e, err := c.CreateEntry(context.Background(), store.EntryInput{Mood: 5, Tags: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if e.ID != 9 {
		t.Errorf("expected id 9, got %d", e.ID)
	}
}

func TestIncrementGoalProgressSendsRequestID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/goals/4/progress" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(RequestIDHeader); got != "attempt-1" {
			t.Errorf("expected request id attempt-1, got %q", got)
		}
		_, _ = w.Write([]byte(`{"id":4,"title":"Walk","frequency_per_week":3,"completed":2,"streak":1,"last_completed_date":"2024-05-15","already_completed_today":true}`))
	})

	ctx := WithRequestID(context.Background(), "attempt-1")
	g, err := c.IncrementGoalProgress(ctx, 4)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if g.Completed != 2 || !g.AlreadyCompletedToday || g.LastCompletedDate != "2024-05-15" {
		t.Errorf("unexpected goal %+v", g)
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"goal not found"}`))
	})

	_, err := c.IncrementGoalProgress(context.Background(), 99)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Message != "goal not found" {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestListGoalCompletions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "2024-05-01" {
			t.Errorf("expected start param, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"date":"2024-05-13"},{"date":"2024-05-15"}]`))
	})

	got, err := c.ListGoalCompletions(context.Background(), 2, "2024-05-01", "")
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(got) != 2 || got[1].Date != "2024-05-15" || got[0].GoalID != 2 {
		t.Errorf("unexpected completions %+v", got)
	}
}

func TestStatisticsDecodesDistribution(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statistics":{"total_entries":3,"average_mood":4},"mood_distribution":{"1":0,"5":2},"current_streak":2}`))
	})

	s, err := c.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if s.Statistics.TotalEntries != 3 || s.MoodDistribution[5] != 2 || s.CurrentStreak != 2 {
		t.Errorf("unexpected statistics %+v", s)
	}
}

func TestDeleteGoalAndToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c.Token = "secret"

	if err := c.DeleteGoal(context.Background(), 1); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := &Client{BaseURL: url}
	if _, err := c.ListGoals(context.Background()); err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestUpdateEntrySendsPartialPatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/mood/4" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if string(raw["mood"]) != "2" {
			t.Errorf("expected mood 2, got %s", raw["mood"])
		}
		if _, ok := raw["content"]; ok {
			t.Error("content should not be sent when unchanged")
		}
		if string(raw["tags"]) != "null" {
			t.Errorf("tags should be null when unchanged, got %s", raw["tags"])
		}
		_, _ = w.Write([]byte(`{"id":4,"date":"2024-05-15","mood":2}`))
	})

	m := 2
	e, err := c.UpdateEntry(context.Background(), 4, store.EntryUpdate{Mood: &m})
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if e.Mood != 2 {
		t.Errorf("expected mood 2, got %d", e.Mood)
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
