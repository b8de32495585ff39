package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo stores question sets in Postgres. The catalog is a JSONB column in
// its wire form.
type PGRepo struct {
	DB *sql.DB
}

const pgSelectColumns = `id, owner_id, name, description, questions, is_default, created_at, updated_at`

func (r *PGRepo) List(ctx context.Context, ownerID string) ([]QuestionSet, error) {
	const query = `
SELECT ` + pgSelectColumns + `
FROM question_sets
WHERE owner_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []QuestionSet{}
	for rows.Next() {
		set, err := scanPGSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, id string) (QuestionSet, error) {
	const query = `
SELECT ` + pgSelectColumns + `
FROM question_sets
WHERE id = $1`
	set, err := scanPGSet(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return QuestionSet{}, ErrNotFound
	}
	return set, err
}

func (r *PGRepo) Create(ctx context.Context, set QuestionSet) error {
	const query = `
INSERT INTO question_sets (id, owner_id, name, description, questions, is_default, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	payload, err := json.Marshal(set.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		set.ID,
		set.OwnerID,
		set.Name,
		set.Description,
		payload,
		set.IsDefault,
		set.CreatedAt,
		set.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Update(ctx context.Context, set QuestionSet) error {
	const query = `
UPDATE question_sets
SET name = $1, description = $2, questions = $3, updated_at = $4
WHERE id = $5`
	payload, err := json.Marshal(set.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, set.Name, set.Description, payload, set.UpdatedAt, set.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM question_sets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPGSet(row rowScanner) (QuestionSet, error) {
	var set QuestionSet
	var raw []byte
	if err := row.Scan(
		&set.ID,
		&set.OwnerID,
		&set.Name,
		&set.Description,
		&raw,
		&set.IsDefault,
		&set.CreatedAt,
		&set.UpdatedAt,
	); err != nil {
		return QuestionSet{}, err
	}
	if err := json.Unmarshal(raw, &set.Questions); err != nil {
		return QuestionSet{}, fmt.Errorf("decode questions for %s: %w", set.ID, err)
	}
	return set, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
