package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"hillchart/internal/service"
)

// fakeAPI serves the subset of the Tasks REST API the client calls.
func fakeAPI(t *testing.T, lists []map[string]string, items map[string][]map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/users/@me/lists/@default"):
			_ = json.NewEncoder(w).Encode(lists[0])
		case strings.HasSuffix(path, "/users/@me/lists"):
			_ = json.NewEncoder(w).Encode(map[string]any{"items": lists})
		case strings.Contains(path, "/lists/") && strings.HasSuffix(path, "/tasks"):
			id := strings.TrimSuffix(path[strings.LastIndex(path, "/lists/")+len("/lists/"):], "/tasks")
			if got := r.URL.Query().Get("showCompleted"); got != "true" {
				t.Errorf("expected showCompleted=true, got %q", got)
			}
			got, ok := items[id]
			if !ok {
				http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"items": got})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestResolveList(t *testing.T) {
	c := fakeAPI(t, []map[string]string{
		{"id": "real-default", "title": "My Tasks"},
		{"id": "w1", "title": "Work"},
		{"id": "w2", "title": " work "},
		{"id": "h1", "title": "Home"},
	}, nil)
	ctx := context.Background()

	list, err := c.ResolveList(ctx, "my tasks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (service.SourceList{ID: DefaultListID, Title: "My Tasks"}); list != want {
		t.Errorf("expected %+v, got %+v", want, list)
	}

	list, err = c.ResolveList(ctx, "HOME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.ID != "h1" {
		t.Errorf("expected h1, got %q", list.ID)
	}

	if _, err := c.ResolveList(ctx, "work"); !errors.Is(err, service.ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	if _, err := c.ResolveList(ctx, "garden"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasks(t *testing.T) {
	c := fakeAPI(t, []map[string]string{{"id": "d", "title": "My Tasks"}}, map[string][]map[string]string{
		"h1": {
			{"id": "t1", "title": "Buy milk", "status": "needsAction", "due": "2025-03-01T00:00:00.000Z"},
			{"id": "t2", "title": "Fix tap", "status": "completed"},
		},
	})

	got, err := c.ListTasks(context.Background(), "h1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}

	if got[0].Title != "Buy milk" || got[0].Completed {
		t.Errorf("unexpected first task: %+v", got[0])
	}
	if got[0].Due == nil || !got[0].Due.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected due date: %v", got[0].Due)
	}
	if !got[1].Completed || got[1].Due != nil {
		t.Errorf("unexpected second task: %+v", got[1])
	}

	if _, err := c.ListTasks(context.Background(), "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWrapError(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("nil should stay nil")
	}
	plain := errString("boom")
	if got := wrapError(plain).Error(); got != "boom" {
		t.Errorf("expected unknown errors to pass through, got %q", got)
	}
	if got := wrapError(errString("googleapi: Error 401: bad")).Error(); !strings.Contains(got, "hillchart login") {
		t.Errorf("expected login hint, got %q", got)
	}
	if got := wrapError(errString("context deadline exceeded")).Error(); got != "request timed out" {
		t.Errorf("expected %q, got %q", "request timed out", got)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
