package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"

	"github.com/journeyman-jobs/hardening/storage"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return New(db, nil), mock, db
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func TestGet_Success(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(selectDocumentSQL)).
		WithArgs("jobs", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"company":"Sparks Electric","localNumber":46}`)))

	doc, err := s.Get(context.Background(), "jobs", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "job-1" || doc.Collection != "jobs" {
		t.Errorf("doc = %s/%s", doc.Collection, doc.ID)
	}
	if doc.Data["localNumber"] != 46.0 {
		t.Errorf("localNumber = %#v", doc.Data["localNumber"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(selectDocumentSQL)).
		WithArgs("jobs", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Get(context.Background(), "jobs", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(selectDocumentSQL)).
		WithArgs("jobs", "job-1").
		WillReturnError(errors.New("db is down"))

	_, err := s.Get(context.Background(), "jobs", "job-1")
	if err == nil || !strings.Contains(err.Error(), "db is down") {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_InvalidKey(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	_, err := s.Get(context.Background(), "", "job-1")
	if !errors.Is(err, storage.ErrInvalidDocument) {
		t.Fatalf("want ErrInvalidDocument, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database should not be touched: %v", err)
	}
}

func TestSet_Replace(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(q(upsertDocumentSQL)).
		WithArgs("jobs", "job-1", []byte(`{"company":"Sparks Electric","wage":52.75}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Set(context.Background(), "jobs", "job-1", map[string]any{
		"wage":    52.75,
		"company": "Sparks Electric",
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_MergeExisting(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectForUpdateSQL)).
		WithArgs("jobs", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"company":"Sparks","details":{"hours":40}}`)))
	mock.ExpectExec(q(upsertDocumentSQL)).
		WithArgs("jobs", "job-1", []byte(`{"company":"Sparks","details":{"hours":40,"perDiem":true}}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Set(context.Background(), "jobs", "job-1", map[string]any{
		"details": map[string]any{"perDiem": true},
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_MergeCreates(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectForUpdateSQL)).
		WithArgs("jobs", "new").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	mock.ExpectExec(q(upsertDocumentSQL)).
		WithArgs("jobs", "new", []byte(`{"a":"b"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Set(context.Background(), "jobs", "new", map[string]any{"a": "b"}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_ExecErrorRollsBack(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectForUpdateSQL)).
		WithArgs("jobs", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{}`)))
	mock.ExpectExec(q(upsertDocumentSQL)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Set(context.Background(), "jobs", "job-1", map[string]any{"a": 1}, true)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectForUpdateSQL)).
		WithArgs("jobs", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	mock.ExpectRollback()

	err := s.Update(context.Background(), "jobs", "missing", map[string]any{"a": 1})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_ReplacesFields(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectForUpdateSQL)).
		WithArgs("jobs", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"details":{"hours":40,"perDiem":true},"notes":"x"}`)))
	mock.ExpectExec(q(updateDocumentSQL)).
		WithArgs("jobs", "job-1", []byte(`{"details":{"hours":32},"notes":"x"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Update(context.Background(), "jobs", "job-1", map[string]any{
		"details": map[string]any{"hours": 32},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(q(deleteDocumentSQL)).
		WithArgs("jobs", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), "jobs", "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQuery_Containment(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(queryDocumentsSQL)).
		WithArgs("jobs", []byte(`{"classification":"inside wireman","localNumber":46}`), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("job-1", []byte(`{"localNumber":46}`)).
			AddRow("job-2", []byte(`{"localNumber":46}`)))

	docs, err := s.Query(context.Background(), "jobs", []storage.Filter{
		{Field: "localNumber", Value: 46},
		{Field: "classification", Value: "inside wireman"},
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "job-1" || docs[1].ID != "job-2" {
		t.Errorf("docs = %v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQuery_NoLimit(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(queryDocumentsSQL)).
		WithArgs("jobs", []byte(`{}`), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}))

	docs, err := s.Query(context.Background(), "jobs", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("docs = %v, want none", docs)
	}
}

func TestList_Pagination(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(listDocumentsSQL)).
		WithArgs("jobs", "", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("a", []byte(`{}`)).
			AddRow("b", []byte(`{}`)).
			AddRow("c", []byte(`{}`)))

	page, err := s.List(context.Background(), "jobs", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Documents) != 2 || page.NextCursor != storage.EncodeCursor("b") {
		t.Fatalf("page = %d docs, cursor %q", len(page.Documents), page.NextCursor)
	}

	mock.ExpectQuery(q(listDocumentsSQL)).
		WithArgs("jobs", "b", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("c", []byte(`{}`)))

	page, err = s.List(context.Background(), "jobs", 2, page.NextCursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Documents) != 1 || page.NextCursor != "" {
		t.Fatalf("last page = %d docs, cursor %q", len(page.Documents), page.NextCursor)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList_InvalidCursor(t *testing.T) {
	s, _, db := newStoreWithMock(t)
	defer db.Close()

	_, err := s.List(context.Background(), "jobs", 2, "%%%")
	if !errors.Is(err, storage.ErrInvalidCursor) {
		t.Fatalf("want ErrInvalidCursor, got %v", err)
	}
}

func TestList_CorruptRow(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q(listDocumentsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("a", []byte(`not json`)))

	if _, err := s.List(context.Background(), "jobs", 2, ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOpen_MissingDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing DSN")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "migrations" {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err = RunMigrations(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations")
	}
}
