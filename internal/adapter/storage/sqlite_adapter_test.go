package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poslane/poslane/internal/core/domain"
)

func openTestStore(t *testing.T) *SQLiteAdapter {
	t.Helper()
	store, err := OpenSQLiteAdapter(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSession_SaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	session := domain.Session{EmployeeCode: "EMP001", LoggedIn: true}
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, loaded)
}

func TestSession_EmptyStoreMeansLoggedOut(t *testing.T) {
	store := openTestStore(t)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Session{}, loaded)
}

func TestSession_Erase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Session{EmployeeCode: "EMP001", LoggedIn: true}))
	require.NoError(t, store.Erase(ctx))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Session{}, loaded)
}

func TestSession_MalformedFlagReadsAsLoggedOut(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO session (key, value) VALUES (?, ?), (?, ?)`,
		sessionKeyEmployeeCode, "EMP001", sessionKeyLoggedIn, "yes")
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, loaded.LoggedIn)
	assert.Equal(t, "EMP001", loaded.EmployeeCode)
}

func TestReceipts_AppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := domain.Receipt{
		ID:           "r-1",
		EmployeeCode: "EMP001",
		Total:        1999,
		Lines: []domain.CartItem{
			{ProductID: 1, Code: "A", Name: "Coffee", Price: 1000, Quantity: 1},
			{ProductID: 2, Code: "B", Name: "Tea", Price: 333, Quantity: 3},
		},
		CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := domain.Receipt{
		ID:           "r-2",
		EmployeeCode: "GUEST00001",
		Total:        500,
		Lines:        []domain.CartItem{{ProductID: 3, Code: "C", Name: "Water", Price: 500, Quantity: 1}},
		CreatedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Append(ctx, older))
	require.NoError(t, store.Append(ctx, newer))

	receipts, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "r-2", receipts[0].ID)
	assert.Equal(t, "r-1", receipts[1].ID)
	assert.Equal(t, older.Lines, receipts[1].Lines)
	assert.Equal(t, older.CreatedAt, receipts[1].CreatedAt)
}

func TestReceipts_RecentHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, domain.Receipt{
			ID:           string(rune('a' + i)),
			EmployeeCode: "EMP001",
			Total:        int64(i),
			Lines:        []domain.CartItem{{Code: "A", Quantity: 1}},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	receipts, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, receipts, 3)
	assert.Equal(t, "e", receipts[0].ID)
}
