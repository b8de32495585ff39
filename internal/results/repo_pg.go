package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo stores records in Postgres with the result as JSONB.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO analysis_results (id, owner_id, file_name, question_set_id, client, results, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.OwnerID,
		rec.FileName,
		rec.QuestionSetID,
		rec.Client,
		payload,
		rec.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Record, error) {
	const query = `
SELECT id, owner_id, file_name, question_set_id, client, results, created_at
FROM analysis_results
WHERE id = $1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id), nil)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *PGRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	const query = `
SELECT id, owner_id, file_name, question_set_id, client, results, created_at
FROM analysis_results
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. created is the destination for created_at; nil
// scans straight into the record's time.Time.
func scanRecord(row rowScanner, created any) (Record, error) {
	var rec Record
	var raw []byte
	if created == nil {
		created = &rec.CreatedAt
	}
	if err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.FileName,
		&rec.QuestionSetID,
		&rec.Client,
		&raw,
		created,
	); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(raw, &rec.Result); err != nil {
		return Record{}, fmt.Errorf("decode result %s: %w", rec.ID, err)
	}
	return rec, nil
}

var _ Repo = (*PGRepo)(nil)
