package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateEncodesResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rec := Record{ID: "res-1", OwnerID: "user-1", FileName: "a.txt", QuestionSetID: "default", Client: "Acme", Result: sampleResult(), CreatedAt: now}

	mock.ExpectExec("INSERT INTO analysis_results").
		WithArgs("res-1", "user-1", "a.txt", "default", "Acme",
			[]byte(`{"client":"Acme","categories":[{"category":"Overview","answers":[{"question":"What project is discussed?","answer":"Acme"}]}]}`),
			now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := (&PGRepo{DB: db}).Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, owner_id, file_name").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "file_name", "question_set_id", "client", "results", "created_at"}))

	if _, err := (&PGRepo{DB: db}).Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListDecodesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "owner_id", "file_name", "question_set_id", "client", "results", "created_at"}).
		AddRow("res-2", "user-1", "b.txt", "", "", []byte(`{"categories":[{"category":"B","answers":[{"question":"q","answer":"a"}]}]}`), now).
		AddRow("res-1", "user-1", "a.txt", "", "Acme", []byte(`{"client":"Acme","categories":[]}`), now.Add(-time.Hour))
	mock.ExpectQuery("FROM analysis_results").
		WithArgs("user-1", 10, 0).
		WillReturnRows(rows)

	got, err := (&PGRepo{DB: db}).List(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "res-2" || got[0].Result.Categories[0].Category != "B" || got[1].Client != "Acme" {
		t.Fatalf("unexpected records %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("DELETE FROM analysis_results").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := (&PGRepo{DB: db}).Delete(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
