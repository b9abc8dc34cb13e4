package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"hillchart/internal/progress"
	"hillchart/internal/service"
)

const featureColumns = `id, name, description, status, due_date, created_at`

func scanFeature(sc interface{ Scan(...any) error }) (service.Feature, error) {
	var f service.Feature
	var status string
	var due sql.NullTime
	if err := sc.Scan(&f.ID, &f.Name, &f.Description, &status, &due, &f.CreatedAt); err != nil {
		return service.Feature{}, err
	}
	f.Status = service.FeatureStatus(status)
	f.DueDate = timePtr(due)
	f.Assignees = []service.Assignee{}
	return f, nil
}

// ListFeatures implements service.Service.
func (s *Store) ListFeatures(ctx context.Context) ([]service.Feature, error) {
	var features []service.Feature
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+featureColumns+` FROM features ORDER BY created_at DESC, id DESC`)
		if err != nil {
			return fmt.Errorf("failed to query features: %w", err)
		}
		for rows.Next() {
			f, err := scanFeature(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan feature: %w", err)
			}
			features = append(features, f)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		assignees, err := featureAssignees(ctx, tx, 0)
		if err != nil {
			return err
		}
		samples, err := taskSamples(ctx, tx, 0)
		if err != nil {
			return err
		}
		for i := range features {
			f := &features[i]
			if a, ok := assignees[f.ID]; ok {
				f.Assignees = a
			}
			if f.Stats, err = progress.Compute(samples[f.ID]); err != nil {
				return fmt.Errorf("feature %d: %w", f.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return features, nil
}

// GetFeature implements service.Service.
func (s *Store) GetFeature(ctx context.Context, id int64) (service.Feature, error) {
	var f service.Feature
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		f, err = getFeature(ctx, tx, id)
		return err
	})
	return f, err
}

// FeatureWithTasks implements service.Service. Both reads share one
// transaction.
func (s *Store) FeatureWithTasks(ctx context.Context, id int64) (service.Feature, []service.Task, error) {
	var f service.Feature
	var tasks []service.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if f, err = getFeature(ctx, tx, id); err != nil {
			return err
		}
		tasks, err = listTasks(ctx, tx, id)
		return err
	})
	if err != nil {
		return service.Feature{}, nil, err
	}
	return f, tasks, nil
}

func getFeature(ctx context.Context, q querier, id int64) (service.Feature, error) {
	f, err := scanFeature(q.QueryRowContext(ctx,
		`SELECT `+featureColumns+` FROM features WHERE id = ?`, id))
	if isNoRows(err) {
		return service.Feature{}, notFound("feature", id)
	}
	if err != nil {
		return service.Feature{}, fmt.Errorf("failed to query feature: %w", err)
	}

	assignees, err := featureAssignees(ctx, q, id)
	if err != nil {
		return service.Feature{}, err
	}
	if a, ok := assignees[id]; ok {
		f.Assignees = a
	}
	samples, err := taskSamples(ctx, q, id)
	if err != nil {
		return service.Feature{}, err
	}
	if f.Stats, err = progress.Compute(samples[id]); err != nil {
		return service.Feature{}, fmt.Errorf("feature %d: %w", id, err)
	}
	return f, nil
}

// ResolveFeature implements service.Service.
func (s *Store) ResolveFeature(ctx context.Context, name string) (service.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM features ORDER BY id`)
	if err != nil {
		return service.Feature{}, fmt.Errorf("failed to query features: %w", err)
	}
	var matches []int64
	for rows.Next() {
		var id int64
		var stored string
		if err := rows.Scan(&id, &stored); err != nil {
			rows.Close()
			return service.Feature{}, fmt.Errorf("failed to scan feature: %w", err)
		}
		if service.MatchName(stored, name) {
			matches = append(matches, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return service.Feature{}, err
	}

	switch len(matches) {
	case 0:
		return service.Feature{}, fmt.Errorf("%w: feature %s", service.ErrNotFound, name)
	case 1:
		return s.GetFeature(ctx, matches[0])
	default:
		return service.Feature{}, fmt.Errorf("%w: feature name %s", service.ErrAmbiguous, name)
	}
}

// CreateFeature implements service.Service.
func (s *Store) CreateFeature(ctx context.Context, in service.FeatureInput) (int64, error) {
	in, err := service.ValidateFeatureInput(in)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO features (name, description, status, due_date, created_at) VALUES (?, ?, ?, ?, ?)`,
			in.Name, in.Description, string(in.Status), nullTime(in.DueDate), s.timestamp())
		if err != nil {
			return fmt.Errorf("failed to insert feature: %w", classify(err))
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, aid := range in.AssigneeIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO feature_assignees (feature_id, assignee_id) VALUES (?, ?)`, id, aid); err != nil {
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

// DeleteFeature implements service.Service.
func (s *Store) DeleteFeature(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM features WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feature: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("feature", id)
	}
	return nil
}

// FeatureStats implements service.Service.
func (s *Store) FeatureStats(ctx context.Context, featureID int64) (service.FeatureStats, error) {
	var out service.FeatureStats
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := featureExists(ctx, tx, featureID); err != nil {
			return err
		}
		samples, err := taskSamples(ctx, tx, featureID)
		if err != nil {
			return err
		}
		stats, err := progress.Compute(samples[featureID])
		if err != nil {
			return fmt.Errorf("feature %d: %w", featureID, err)
		}
		out = service.FeatureStats{FeatureID: featureID, Stats: stats}
		return nil
	})
	return out, err
}

// AllFeatureStats implements service.Service. Features without tasks are
// included with nil stats.
func (s *Store) AllFeatureStats(ctx context.Context) ([]service.FeatureStats, error) {
	var out []service.FeatureStats
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM features ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to query features: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		samples, err := taskSamples(ctx, tx, 0)
		if err != nil {
			return err
		}
		for _, id := range ids {
			stats, err := progress.Compute(samples[id])
			if err != nil {
				return fmt.Errorf("feature %d: %w", id, err)
			}
			out = append(out, service.FeatureStats{FeatureID: id, Stats: stats})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func featureExists(ctx context.Context, q querier, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM features WHERE id = ?`, id).Scan(&one)
	if isNoRows(err) {
		return notFound("feature", id)
	}
	if err != nil {
		return fmt.Errorf("failed to query feature: %w", err)
	}
	return nil
}

// taskSamples reads completed/position for one feature, or all features
// when featureID is 0, grouped by feature.
func taskSamples(ctx context.Context, q querier, featureID int64) (map[int64][]progress.Sample, error) {
	query := `SELECT feature_id, completed, position FROM tasks`
	var args []any
	if featureID != 0 {
		query += ` WHERE feature_id = ?`
		args = append(args, featureID)
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]progress.Sample)
	for rows.Next() {
		var fid int64
		var smp progress.Sample
		if err := rows.Scan(&fid, &smp.Completed, &smp.Position); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out[fid] = append(out[fid], smp)
	}
	return out, rows.Err()
}

// featureAssignees reads assignees for one feature, or all when featureID is 0.
func featureAssignees(ctx context.Context, q querier, featureID int64) (map[int64][]service.Assignee, error) {
	query := `SELECT fa.feature_id, ` + assigneeColumnsA + `
		FROM feature_assignees fa JOIN assignees a ON a.id = fa.assignee_id`
	var args []any
	if featureID != 0 {
		query += ` WHERE fa.feature_id = ?`
		args = append(args, featureID)
	}
	query += ` ORDER BY a.username`
	return groupedAssignees(ctx, q, query, args...)
}
