package app

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/SarAA2003/QuickAi/app/models"
)

// installMockDB swaps the global db for a sqlmock connection.
func installMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	prev := db
	db = mockDB
	t.Cleanup(func() {
		db = prev
		mockDB.Close()
	})
	return mock
}

func TestResolvePremiumResetsCounter(t *testing.T) {
	mock := installMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, free_usage").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "free_usage"}).AddRow("premium", 7))
	mock.ExpectExec("SET free_usage = 0").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ent, err := pgEntitlementStore{}.Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ent.Plan != models.PlanPremium {
		t.Errorf("expected plan %q, got %q", models.PlanPremium, ent.Plan)
	}
	if ent.FreeUsage != 0 {
		t.Errorf("expected free usage reset to 0, got %d", ent.FreeUsage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}
}

func TestResolveFreeKeepsStoredCounter(t *testing.T) {
	mock := installMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, free_usage").
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "free_usage"}).AddRow("free", 4))
	mock.ExpectCommit()

	ent, err := pgEntitlementStore{}.Resolve(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ent.Plan != models.PlanFree {
		t.Errorf("expected plan %q, got %q", models.PlanFree, ent.Plan)
	}
	if ent.FreeUsage != 4 {
		t.Errorf("expected free usage 4, got %d", ent.FreeUsage)
	}
	// ExpectationsWereMet also proves no counter write happened.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}
}

func TestResolveInsertsDefaultUserOnFirstSighting(t *testing.T) {
	mock := installMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, free_usage").
		WithArgs("user-new").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-new", models.PlanFree).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT plan, free_usage").
		WithArgs("user-new").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "free_usage"}).AddRow("free", 0))
	mock.ExpectCommit()

	ent, err := pgEntitlementStore{}.Resolve(context.Background(), "user-new")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ent.Plan != models.PlanFree || ent.FreeUsage != 0 {
		t.Errorf("expected fresh free entitlement, got %+v", ent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}
}

func TestIncrementFreeUsageIsSingleStatement(t *testing.T) {
	mock := installMockDB(t)

	mock.ExpectExec("free_usage = free_usage \\+ 1").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := (pgEntitlementStore{}).IncrementFreeUsage(context.Background(), "user-1"); err != nil {
		t.Fatalf("IncrementFreeUsage: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}
}
