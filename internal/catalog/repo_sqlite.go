package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepo stores question sets in a local SQLite file. Timestamps are kept
// as RFC 3339 text.
type SQLiteRepo struct {
	DB *sql.DB
}

func (r *SQLiteRepo) List(ctx context.Context, ownerID string) ([]QuestionSet, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, owner_id, name, description, questions, is_default, created_at, updated_at
FROM question_sets
WHERE owner_id = ?
ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []QuestionSet{}
	for rows.Next() {
		set, err := scanSQLiteSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (QuestionSet, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, owner_id, name, description, questions, is_default, created_at, updated_at
FROM question_sets
WHERE id = ?`, id)
	set, err := scanSQLiteSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QuestionSet{}, ErrNotFound
	}
	return set, err
}

func (r *SQLiteRepo) Create(ctx context.Context, set QuestionSet) error {
	payload, err := json.Marshal(set.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO question_sets (id, owner_id, name, description, questions, is_default, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		set.ID, set.OwnerID, set.Name, set.Description, string(payload),
		boolToInt(set.IsDefault), formatTime(set.CreatedAt), formatTime(set.UpdatedAt))
	return err
}

func (r *SQLiteRepo) Update(ctx context.Context, set QuestionSet) error {
	payload, err := json.Marshal(set.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE question_sets SET name = ?, description = ?, questions = ?, updated_at = ?
WHERE id = ?`, set.Name, set.Description, string(payload), formatTime(set.UpdatedAt), set.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM question_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanSQLiteSet(row rowScanner) (QuestionSet, error) {
	var set QuestionSet
	var raw, created, updated string
	var isDefault int
	if err := row.Scan(&set.ID, &set.OwnerID, &set.Name, &set.Description, &raw, &isDefault, &created, &updated); err != nil {
		return QuestionSet{}, err
	}
	if err := json.Unmarshal([]byte(raw), &set.Questions); err != nil {
		return QuestionSet{}, fmt.Errorf("decode questions for %s: %w", set.ID, err)
	}
	set.IsDefault = isDefault != 0
	var err error
	if set.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return QuestionSet{}, fmt.Errorf("parse created_at: %w", err)
	}
	if set.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return QuestionSet{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return set, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Repo = (*SQLiteRepo)(nil)
