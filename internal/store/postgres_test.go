package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func TestPostgresGet(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM kv_store`).
		WithArgs("user-1", "profile").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"p","note":"hello"}`)))

	var got item
	if err := NewPostgres(mock).Get(context.Background(), Key{UserID: "user-1", Kind: KindProfile}, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Note != "hello" {
		t.Fatalf("unexpected value %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM kv_store`).
		WithArgs("user-1", "rides").
		WillReturnError(pgx.ErrNoRows)

	var got []item
	err = NewPostgres(mock).Get(context.Background(), Key{UserID: "user-1", Kind: KindRides}, &got)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresGetError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM kv_store`).
		WithArgs("user-1", "rides").
		WillReturnError(errStore)

	var got []item
	err = NewPostgres(mock).Get(context.Background(), Key{UserID: "user-1", Kind: KindRides}, &got)
	if !errors.Is(err, errStore) {
		t.Fatalf("expected query error, got %v", err)
	}
}

func TestPostgresSet(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("user-1", "memories", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := NewPostgres(mock).Set(context.Background(), Key{UserID: "user-1", Kind: KindMemories}, []item{{ID: "m"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSetError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("user-1", "profile", pgxmock.AnyArg()).
		WillReturnError(errStore)

	err = NewPostgres(mock).Set(context.Background(), Key{UserID: "user-1", Kind: KindProfile}, item{})
	if !errors.Is(err, errStore) {
		t.Fatalf("expected exec error, got %v", err)
	}
}
