package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/yourorg/cloudlock/internal/models"
)

func newMockFileStore(t *testing.T) (*FileStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFileStore(db), mock
}

var uploadedAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func record(name string) models.FileRecord {
	return models.FileRecord{
		URL:        "https://res.cloudinary.com/demo/image/upload/v1/" + name,
		Name:       name,
		FileType:   "pdf",
		UploadedAt: uploadedAt,
	}
}

func mustJSON(t *testing.T, files []models.FileRecord) []byte {
	t.Helper()
	data, err := json.Marshal(files)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return data
}

const (
	selectForUpdate = `SELECT files FROM myfiles WHERE user_id = ? FOR UPDATE`
	selectRow       = `SELECT files, secured FROM myfiles WHERE user_id = ? LIMIT 1`
	updateFiles     = `UPDATE myfiles SET files = ? WHERE user_id = ?`
	insertFiles     = `INSERT INTO myfiles (user_id, files, secured) VALUES (?, ?, 0)`
)

func TestAppendFileFirstUploadInsertsRow(t *testing.T) {
	s, mock := newMockFileStore(t)
	recA := record("a.pdf")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(insertFiles)).
		WithArgs(int64(42), mustJSON(t, []models.FileRecord{recA})).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := s.AppendFile(context.Background(), 42, recA); err != nil {
		t.Fatalf("AppendFile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAppendFilePreservesEarlierAppend(t *testing.T) {
	// Dos appends seguidos del mismo usuario: el segundo parte del estado que
	// dejó el primero porque la fila se relee bajo FOR UPDATE dentro de la
	// transacción. El payload final debe contener AMBOS registros, en orden.
	s, mock := newMockFileStore(t)
	recA, recB := record("a.pdf"), record("b.pdf")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(insertFiles)).
		WithArgs(int64(42), mustJSON(t, []models.FileRecord{recA})).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"files"}).
			AddRow(mustJSON(t, []models.FileRecord{recA})))
	mock.ExpectExec(regexp.QuoteMeta(updateFiles)).
		WithArgs(mustJSON(t, []models.FileRecord{recA, recB}), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.AppendFile(context.Background(), 42, recA); err != nil {
		t.Fatalf("AppendFile(recA): %v", err)
	}
	if err := s.AppendFile(context.Background(), 42, recB); err != nil {
		t.Fatalf("AppendFile(recB): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAppendFileRollsBackOnUpdateError(t *testing.T) {
	s, mock := newMockFileStore(t)
	recA := record("a.pdf")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"files"}).AddRow([]byte(`[]`)))
	mock.ExpectExec(regexp.QuoteMeta(updateFiles)).
		WithArgs(mustJSON(t, []models.FileRecord{recA}), int64(42)).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	if err := s.AppendFile(context.Background(), 42, recA); err == nil {
		t.Fatal("AppendFile: esperaba error, obtuve nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRowMissingReturnsEmpty(t *testing.T) {
	s, mock := newMockFileStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectRow)).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	row, err := s.Row(context.Background(), 7)
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row.UserID != 7 || len(row.Files) != 0 || row.Secured {
		t.Fatalf("Row = %+v, esperaba fila vacía para user 7", row)
	}
}

func TestRowCorruptJSON(t *testing.T) {
	s, mock := newMockFileStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectRow)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"files", "secured"}).
			AddRow([]byte(`{esto no es json`), false))

	_, err := s.Row(context.Background(), 7)
	if err == nil {
		t.Fatal("Row: esperaba error por JSON corrupto, obtuve nil")
	}
	if !strings.Contains(err.Error(), "JSON") {
		t.Fatalf("Row: error %q no menciona el JSON corrupto", err)
	}
}

func TestMarkSecuredUpsert(t *testing.T) {
	s, mock := newMockFileStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO myfiles (user_id, files, secured) VALUES (?, '[]', 1)`)).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.MarkSecured(context.Background(), 42); err != nil {
		t.Fatalf("MarkSecured: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
