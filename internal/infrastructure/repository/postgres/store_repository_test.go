package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*StoreRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &StoreRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestListStoresDecodesProducts(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"name", "address", "city", "lat", "lng", "products"}).
		AddRow("Corner Store", "1 King St", "Toronto", 43.65, -79.38, []byte(`[{"name":"KitKat","price":1.99}]`)).
		AddRow("Empty Shelf", "", "Ottawa", 45.42, -75.69, []byte(`[]`))
	mock.ExpectQuery("SELECT name, address, city, lat, lng, products").WillReturnRows(rows)

	stores, err := repo.ListStores(context.Background())
	if err != nil {
		t.Fatalf("ListStores() error = %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stores))
	}
	if len(stores[0].Products) != 1 || stores[0].Products[0].Name != "KitKat" || stores[0].Products[0].Price != 1.99 {
		t.Fatalf("unexpected products %+v", stores[0].Products)
	}
	if len(stores[1].Products) != 0 {
		t.Fatalf("expected no products, got %+v", stores[1].Products)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListStoresQueryErrorIsStoreDataUnavailable(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT name, address, city, lat, lng, products").WillReturnError(errors.New("connection refused"))

	_, err := repo.ListStores(context.Background())
	if !domain.IsKind(err, domain.ErrStoreDataUnavailable) {
		t.Fatalf("expected ErrStoreDataUnavailable, got %v", err)
	}
}

func TestReplaceAllRunsInTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stores").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO stores").
		WithArgs("Corner Store", "1 King St", "Toronto", 43.65, -79.38, []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), []domain.Store{{
		Name: "Corner Store", Address: "1 King St", City: "Toronto", Lat: 43.65, Lng: -79.38,
	}})
	if err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stores").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO stores").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), []domain.Store{{Name: "Broken"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS stores").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
