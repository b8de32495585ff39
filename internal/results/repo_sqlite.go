package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// sqliteTime sorts lexically in time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepo stores records in a local SQLite file.
type SQLiteRepo struct {
	DB *sql.DB
}

func (r *SQLiteRepo) Create(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO analysis_results (id, owner_id, file_name, question_set_id, client, results, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.FileName, rec.QuestionSetID, rec.Client, string(payload),
		rec.CreatedAt.UTC().Format(sqliteTime))
	return err
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (Record, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, owner_id, file_name, question_set_id, client, results, created_at
FROM analysis_results
WHERE id = ?`, id)
	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *SQLiteRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, owner_id, file_name, question_set_id, client, results, created_at
FROM analysis_results
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = ?`, id)
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

func scanSQLiteRecord(row rowScanner) (Record, error) {
	var created string
	rec, err := scanRecord(row, &created)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
	}
	return rec, nil
}

var _ Repo = (*SQLiteRepo)(nil)
