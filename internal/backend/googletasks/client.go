// Package googletasks reads task lists from the Google Tasks API so they can
// be imported as features.
package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"hillchart/internal/config"
	"hillchart/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the read-only OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks.readonly"
)

// Client implements service.TaskSource using Google Tasks API.
type Client struct {
	svc *tasks.Service
}

var _ service.TaskSource = (*Client)(nil)

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Refreshes automatically; the refreshed token is not written back.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	return NewWithHTTPClient(ctx, httpClient)
}

// NewWithHTTPClient creates a client with a custom HTTP client and extra
// options such as option.WithEndpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListLists returns all task lists in API order. The default list keeps
// the @default ID.
func (c *Client) ListLists(ctx context.Context) ([]service.SourceList, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	defaultList, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	var result []service.SourceList
	err = c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			id := list.Id
			if id == defaultList.Id {
				id = DefaultListID
			}
			result = append(result, service.SourceList{ID: id, Title: list.Title})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// ResolveList finds a list by name (case-insensitive, trimmed).
func (c *Client) ResolveList(ctx context.Context, name string) (service.SourceList, error) {
	lists, err := c.ListLists(ctx)
	if err != nil {
		return service.SourceList{}, err
	}

	var matches []service.SourceList
	for _, list := range lists {
		if service.MatchName(list.Title, name) {
			matches = append(matches, list)
		}
	}

	switch len(matches) {
	case 0:
		return service.SourceList{}, fmt.Errorf("%w: list %s", service.ErrNotFound, strings.TrimSpace(name))
	case 1:
		return matches[0], nil
	default:
		return service.SourceList{}, fmt.Errorf("%w: list name %s", service.ErrAmbiguous, strings.TrimSpace(name))
	}
}

// ListTasks returns every task in a list, completed ones included.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]service.SourceTask, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.SourceTask
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				st := service.SourceTask{
					ID:        t.Id,
					Title:     t.Title,
					Completed: t.Status == "completed",
				}
				if t.Due != "" {
					due, err := time.Parse(time.RFC3339, t.Due)
					if err != nil {
						return fmt.Errorf("task %s: invalid due date %q: %w", t.Id, t.Due, err)
					}
					st.Due = &due
				}
				result = append(result, st)
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: hillchart login)")
	}

	if strings.Contains(errStr, "404") {
		return fmt.Errorf("%w: google tasks resource", service.ErrNotFound)
	}

	return err
}
