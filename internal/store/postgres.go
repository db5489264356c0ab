package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"planmark/api/internal/annotation"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) InsertPlan(ctx context.Context, plan Plan) error {
	status := plan.Status
	if status == "" {
		status = PlanStatusInReview
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (id, slug, title, status, current_hash, created_by_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, plan.ID, plan.Slug, plan.Title, status, plan.CurrentHash, plan.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// GetPlan returns sql.ErrNoRows when the plan does not exist.
func (s *PostgresStore) GetPlan(ctx context.Context, planID string) (Plan, error) {
	var plan Plan
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, status, current_hash, created_by_name, created_at, updated_at
		FROM plans
		WHERE id=$1
	`, planID).Scan(&plan.ID, &plan.Slug, &plan.Title, &plan.Status, &plan.CurrentHash, &plan.CreatedBy, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, title, status, current_hash, created_by_name, created_at, updated_at
		FROM plans
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	items := make([]Plan, 0)
	for rows.Next() {
		var plan Plan
		if err := rows.Scan(&plan.ID, &plan.Slug, &plan.Title, &plan.Status, &plan.CurrentHash, &plan.CreatedBy, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		items = append(items, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return items, nil
}

// UpdatePlanVersion moves a plan to a new head version and status.
func (s *PostgresStore) UpdatePlanVersion(ctx context.Context, planID, hash, title, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE plans
		SET current_hash=$2, title=$3, status=$4, updated_at=NOW()
		WHERE id=$1
	`, planID, hash, title, status)
	if err != nil {
		return fmt.Errorf("update plan version: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) InsertAnnotation(ctx context.Context, planID string, item annotation.Annotation) error {
	imagePaths := item.ImagePaths
	if imagePaths == nil {
		imagePaths = []string{}
	}
	encodedPaths, err := json.Marshal(imagePaths)
	if err != nil {
		return fmt.Errorf("marshal annotation image paths: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plan_annotations (id, plan_id, block_id, type, original_text, text, tag, is_macro, author, image_paths, start_offset, end_offset, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13)
	`, item.ID, planID, item.BlockID, string(item.Type), item.OriginalText, item.Text, string(item.Tag), item.IsMacro,
		item.Author, string(encodedPaths), item.StartOffset, item.EndOffset, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

// ListAnnotations returns the annotations of a plan in insertion order.
func (s *PostgresStore) ListAnnotations(ctx context.Context, planID string) ([]annotation.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, block_id, type, original_text, text, tag, is_macro, author, image_paths, start_offset, end_offset, created_at_ms
		FROM plan_annotations
		WHERE plan_id=$1
		ORDER BY seq ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	items := make([]annotation.Annotation, 0)
	for rows.Next() {
		var item annotation.Annotation
		var kind, tag string
		var imagePathsRaw []byte
		if err := rows.Scan(
			&item.ID,
			&item.BlockID,
			&kind,
			&item.OriginalText,
			&item.Text,
			&tag,
			&item.IsMacro,
			&item.Author,
			&imagePathsRaw,
			&item.StartOffset,
			&item.EndOffset,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		item.Type = annotation.Type(kind)
		item.Tag = annotation.Tag(tag)
		_ = json.Unmarshal(imagePathsRaw, &item.ImagePaths)
		if len(item.ImagePaths) == 0 {
			item.ImagePaths = nil
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return items, nil
}

// DeleteAnnotation reports whether an annotation was removed.
func (s *PostgresStore) DeleteAnnotation(ctx context.Context, planID, annotationID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM plan_annotations WHERE plan_id=$1 AND id=$2`, planID, annotationID)
	if err != nil {
		return false, fmt.Errorf("delete annotation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete annotation rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) InsertDecision(ctx context.Context, entry Decision) (Decision, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO plan_decisions (plan_id, outcome, feedback, decided_by_name, commit_hash, tag, markers_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, decided_at
	`, entry.PlanID, entry.Outcome, entry.Feedback, entry.DecidedBy, entry.CommitHash, entry.Tag, entry.MarkersAdded).Scan(&entry.ID, &entry.DecidedAt)
	if err != nil {
		return Decision{}, fmt.Errorf("insert decision: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListDecisions(ctx context.Context, planID string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, outcome, feedback, decided_by_name, decided_at, commit_hash, tag, markers_added
		FROM plan_decisions
		WHERE plan_id=$1
		ORDER BY decided_at DESC, id DESC
		LIMIT $2
	`, planID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	items := make([]Decision, 0)
	for rows.Next() {
		var item Decision
		if err := rows.Scan(
			&item.ID,
			&item.PlanID,
			&item.Outcome,
			&item.Feedback,
			&item.DecidedBy,
			&item.DecidedAt,
			&item.CommitHash,
			&item.Tag,
			&item.MarkersAdded,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
