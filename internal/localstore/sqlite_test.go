package localstore

import (
	"context"
	"testing"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations("./migrations"))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_MissingKey(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetRaw(context.Background(), "device-1", KeyBusinessData)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_PutOverwrites(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.PutRaw(ctx, "device-1", "k", []byte(`"a"`)))
	require.NoError(t, store.PutRaw(ctx, "device-1", "k", []byte(`"b"`)))

	raw, err := store.GetRaw(ctx, "device-1", "k")
	require.NoError(t, err)
	assert.Equal(t, `"b"`, string(raw))

	require.NoError(t, store.Delete(ctx, "device-1", "k"))
	_, err = store.GetRaw(ctx, "device-1", "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDevice_BusinessAndReviewedIDs(t *testing.T) {
	stores := map[string]Store{
		"sqlite": setupTestDB(t),
		"memory": NewMemory(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			device := ForDevice(store, "device-1")
			other := ForDevice(store, "device-2")

			reg, err := device.LoadBusiness(ctx)
			require.NoError(t, err)
			assert.Nil(t, reg)

			ids, err := device.LoadReviewedIDs(ctx)
			require.NoError(t, err)
			assert.Empty(t, ids)

			want := domain.BusinessRegistration{Name: "Lemon Coffee", BusinessID: "LC-1", FiscalPermit: "FP-9"}
			require.NoError(t, device.SaveBusiness(ctx, want))
			require.NoError(t, device.SaveReviewedIDs(ctx, []string{"0xBUSI_001_LemonCoffee"}))

			reg, err = device.LoadBusiness(ctx)
			require.NoError(t, err)
			require.NotNil(t, reg)
			assert.Equal(t, want, *reg)

			ids, err = device.LoadReviewedIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"0xBUSI_001_LemonCoffee"}, ids)

			reg, err = other.LoadBusiness(ctx)
			require.NoError(t, err)
			assert.Nil(t, reg, "values are scoped to the device")
		})
	}
}

func TestDevice_StoredFormatIsJSON(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, ForDevice(store, "d").SaveBusiness(ctx, domain.BusinessRegistration{Name: "A", BusinessID: "B", FiscalPermit: "C"}))

	raw, err := store.GetRaw(ctx, "d", KeyBusinessData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"A","businessId":"B","fiscalPermit":"C"}`, string(raw))
}

func TestDevice_CorruptValue(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.PutRaw(ctx, "d", KeyReviewedBusinessIDs, []byte(`{not json`)))

	_, err := ForDevice(store, "d").LoadReviewedIDs(ctx)
	require.Error(t, err)
}
