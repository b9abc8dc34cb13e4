package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"hillchart/internal/progress"
	"hillchart/internal/service"
)

const taskColumns = `id, feature_id, title, completed, position, due_date, created_at, updated_at`

func scanTask(sc interface{ Scan(...any) error }) (service.Task, error) {
	var t service.Task
	var due sql.NullTime
	if err := sc.Scan(&t.ID, &t.FeatureID, &t.Title, &t.Completed, &t.Position, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return service.Task{}, err
	}
	t.DueDate = timePtr(due)
	t.Assignees = []service.Assignee{}
	return t, nil
}

// ListTasks implements service.Service.
func (s *Store) ListTasks(ctx context.Context, featureID int64) ([]service.Task, error) {
	var tasks []service.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		tasks, err = listTasks(ctx, tx, featureID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func listTasks(ctx context.Context, q querier, featureID int64) ([]service.Task, error) {
	if err := featureExists(ctx, q, featureID); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE feature_id = ? ORDER BY id`, featureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	tasks := []service.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assignees, err := groupedAssignees(ctx, q, `
		SELECT ta.task_id, `+assigneeColumnsA+`
		FROM task_assignees ta
		JOIN assignees a ON a.id = ta.assignee_id
		JOIN tasks t ON t.id = ta.task_id
		WHERE t.feature_id = ?
		ORDER BY a.username`, featureID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if a, ok := assignees[tasks[i].ID]; ok {
			tasks[i].Assignees = a
		}
	}
	return tasks, nil
}

// GetTask implements service.Service.
func (s *Store) GetTask(ctx context.Context, id int64) (service.Task, error) {
	var t service.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		assignees, err := groupedAssignees(ctx, tx, `
			SELECT ta.task_id, `+assigneeColumnsA+`
			FROM task_assignees ta JOIN assignees a ON a.id = ta.assignee_id
			WHERE ta.task_id = ?
			ORDER BY a.username`, id)
		if err != nil {
			return err
		}
		if a, ok := assignees[id]; ok {
			t.Assignees = a
		}
		return nil
	})
	return t, err
}

func getTask(ctx context.Context, q querier, id int64) (service.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if isNoRows(err) {
		return service.Task{}, notFound("task", id)
	}
	if err != nil {
		return service.Task{}, fmt.Errorf("failed to query task: %w", err)
	}
	return t, nil
}

// CreateTask implements service.Service.
func (s *Store) CreateTask(ctx context.Context, featureID int64, in service.TaskInput) (int64, error) {
	in, err := service.ValidateTaskInput(in)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := featureExists(ctx, tx, featureID); err != nil {
			return err
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (feature_id, title, completed, position, due_date, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			featureID, in.Title, in.Completed, in.Position, nullTime(in.DueDate), now, now)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", classify(err))
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, aid := range in.AssigneeIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO task_assignees (task_id, assignee_id) VALUES (?, ?)`, id, aid); err != nil {
				return fmt.Errorf("failed to assign %d: %w", aid, classify(err))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateTask implements service.Service. Completion and position go through
// the store's CompletionPolicy.
func (s *Store) UpdateTask(ctx context.Context, id int64, u service.TaskUpdate) error {
	if u.Position != nil && (math.IsNaN(*u.Position) || math.IsInf(*u.Position, 0)) {
		return fmt.Errorf("%w: position is not a finite number", service.ErrInvalid)
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("%w: title required", service.ErrInvalid)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		next := s.policy.Apply(
			progress.TaskState{Completed: cur.Completed, Position: cur.Position},
			progress.Update{Completed: u.Completed, Position: u.Position},
		)
		title := cur.Title
		if u.Title != nil {
			title = strings.TrimSpace(*u.Title)
		}
		due := cur.DueDate
		if u.DueDate != nil {
			due = u.DueDate
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, completed = ?, position = ?, due_date = ?, updated_at = ? WHERE id = ?`,
			title, next.Completed, next.Position, nullTime(due), s.timestamp(), id); err != nil {
			return fmt.Errorf("failed to update task: %w", classify(err))
		}
		s.log.Debug("task updated",
			zap.Int64("id", id),
			zap.Bool("completed", next.Completed),
			zap.Float64("position", next.Position),
			zap.Stringer("policy", s.policy))
		return nil
	})
}

// UpdateTaskPosition implements service.Service.
func (s *Store) UpdateTaskPosition(ctx context.Context, id int64, position float64) error {
	return s.UpdateTask(ctx, id, service.TaskUpdate{Position: &position})
}

// DeleteTask implements service.Service.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("task", id)
	}
	return nil
}
