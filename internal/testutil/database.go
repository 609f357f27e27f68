// Package testutil provides shared fixtures for tests that need a database or
// sample transactions.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/storage"
)

// TestDB is a migrated in-memory database scoped to one test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database that is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedTransactions(testutil.Txn("t1", "org-1", "-1999", "STRIPE FEE"))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{Storage: store, t: t}
}

// SeedTransactions stores txns or fails the test.
func (db *TestDB) SeedTransactions(txns ...model.NormalizedTransaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// SeedOverride stores a vendor override or fails the test.
func (db *TestDB) SeedOverride(orgID, keyword, slug string, confidence float64) {
	db.t.Helper()
	err := db.Storage.SaveVendorOverride(context.Background(), &model.VendorOverride{
		OrgID:        orgID,
		Keyword:      keyword,
		CategorySlug: slug,
		Confidence:   confidence,
	})
	if err != nil {
		db.t.Fatalf("failed to seed vendor override: %v", err)
	}
}

// SeedOrganization stores an organization or fails the test.
func (db *TestDB) SeedOrganization(org model.Organization) {
	db.t.Helper()
	if err := db.Storage.SaveOrganization(context.Background(), &org); err != nil {
		db.t.Fatalf("failed to seed organization: %v", err)
	}
}

// FixtureDate is the posting date of fixture transactions.
var FixtureDate = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Txn builds a manual USD transaction dated FixtureDate.
func Txn(id, orgID, amountCents, description string) model.NormalizedTransaction {
	return model.NormalizedTransaction{
		ID:          id,
		OrgID:       orgID,
		Date:        FixtureDate,
		AmountCents: amountCents,
		Currency:    "USD",
		Description: description,
		Source:      model.SourceManual,
	}
}
