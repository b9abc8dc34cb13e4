package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"hillchart/internal/service"
)

const assigneeColumnsA = `a.id, a.username, a.avatar_url, a.created_at`

// ListAssignees implements service.Service.
func (s *Store) ListAssignees(ctx context.Context) ([]service.Assignee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, avatar_url, created_at FROM assignees ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignees: %w", err)
	}
	defer rows.Close()

	out := []service.Assignee{}
	for rows.Next() {
		var a service.Assignee
		if err := rows.Scan(&a.ID, &a.Username, &a.AvatarURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignee: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAssignee implements service.Service.
func (s *Store) CreateAssignee(ctx context.Context, username, avatarURL string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username required", service.ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO assignees (username, avatar_url, created_at) VALUES (?, ?, ?)`,
		username, avatarURL, s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("failed to insert assignee: %w", classify(err))
	}
	return res.LastInsertId()
}

// groupedAssignees runs a query whose first column is an owner id followed
// by assigneeColumnsA, and groups the assignees by owner.
func groupedAssignees(ctx context.Context, q querier, query string, args ...any) (map[int64][]service.Assignee, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignees: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]service.Assignee)
	for rows.Next() {
		var owner int64
		var a service.Assignee
		if err := rows.Scan(&owner, &a.ID, &a.Username, &a.AvatarURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignee: %w", err)
		}
		out[owner] = append(out[owner], a)
	}
	return out, rows.Err()
}
