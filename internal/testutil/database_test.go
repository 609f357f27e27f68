package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/storage"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	version, err := db.Storage.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, version)

	db.SeedOrganization(model.Organization{ID: "org-1", Name: "Org One"})
	db.SeedTransactions(Txn("t1", "org-1", "-1999", "STRIPE FEE"))
	db.SeedOverride("org-1", "Acme Boxes", "packaging_materials", 0.97)

	pending, err := db.Storage.GetUncategorizedTransactions(ctx, "org-1", 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, FixtureDate, pending[0].Date.UTC())

	overrides, err := db.Storage.GetVendorOverrides(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "acme boxes", overrides[0].Keyword)
}
