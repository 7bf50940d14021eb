package database

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapshot(holdingID string, date time.Time, value float64) *models.PerformanceSnapshot {
	return &models.PerformanceSnapshot{
		HoldingID:    holdingID,
		Date:         date,
		PricePerUnit: decimal.NewFromFloat(value / 10),
		TotalValue:   decimal.NewFromFloat(value),
		Currency:     "SEK",
	}
}

func TestSnapshotsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	seedHolding := func(t *testing.T) string {
		t.Helper()
		h := newHolding("acc-1", "Ericsson B", "ERIC-B", 10, 65)
		require.NoError(t, testDB.CreateHolding(ctx, h))
		return h.ID
	}

	t.Run("UpsertSnapshot creates new record", func(t *testing.T) {
		testDB.TruncateAll(t)
		id := seedHolding(t)

		s := snapshot(id, day(2024, 5, 2), 800)
		require.NoError(t, testDB.UpsertSnapshot(ctx, s))
		assert.NotZero(t, s.ID)
	})

	t.Run("UpsertSnapshot twice leaves one row with latest values", func(t *testing.T) {
		testDB.TruncateAll(t)
		id := seedHolding(t)

		first := snapshot(id, day(2024, 5, 2), 800)
		require.NoError(t, testDB.UpsertSnapshot(ctx, first))

		second := snapshot(id, time.Date(2024, 5, 2, 18, 45, 0, 0, time.UTC), 820)
		require.NoError(t, testDB.UpsertSnapshot(ctx, second))
		assert.Equal(t, first.ID, second.ID)

		var count int
		require.NoError(t, testDB.GetRawConn().QueryRow(
			`SELECT COUNT(*) FROM performance_snapshots WHERE holding_id = $1`, id).Scan(&count))
		assert.Equal(t, 1, count)

		got, err := testDB.GetSnapshot(ctx, id, day(2024, 5, 2))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(820).Equal(got.TotalValue))
	})

	t.Run("UpsertSnapshots writes a batch", func(t *testing.T) {
		testDB.TruncateAll(t)
		a, b := seedHolding(t), seedHolding(t)

		require.NoError(t, testDB.UpsertSnapshots(ctx, []*models.PerformanceSnapshot{
			snapshot(a, day(2024, 5, 2), 100),
			snapshot(b, day(2024, 5, 2), 200),
		}))
		require.NoError(t, testDB.UpsertSnapshots(ctx, []*models.PerformanceSnapshot{
			snapshot(a, day(2024, 5, 2), 110),
		}))

		got, err := testDB.GetSnapshot(ctx, a, day(2024, 5, 2))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(110).Equal(got.TotalValue))
	})

	t.Run("GetLatestSnapshotBefore skips same day and later", func(t *testing.T) {
		testDB.TruncateAll(t)
		id := seedHolding(t)

		for _, s := range []*models.PerformanceSnapshot{
			snapshot(id, day(2024, 4, 29), 700),
			snapshot(id, day(2024, 5, 1), 750),
			snapshot(id, day(2024, 5, 2), 800),
		} {
			require.NoError(t, testDB.UpsertSnapshot(ctx, s))
		}

		prev, err := testDB.GetLatestSnapshotBefore(ctx, id, day(2024, 5, 2))
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, "2024-05-01", prev.Date.Format("2006-01-02"))
		assert.True(t, decimal.NewFromInt(750).Equal(prev.TotalValue))
	})

	t.Run("GetLatestSnapshotBefore returns nil without history", func(t *testing.T) {
		testDB.TruncateAll(t)
		id := seedHolding(t)

		prev, err := testDB.GetLatestSnapshotBefore(ctx, id, day(2024, 5, 2))
		require.NoError(t, err)
		assert.Nil(t, prev)
	})

	t.Run("GetSnapshotHistory returns range oldest first", func(t *testing.T) {
		testDB.TruncateAll(t)
		id := seedHolding(t)

		for i := 1; i <= 5; i++ {
			require.NoError(t, testDB.UpsertSnapshot(ctx, snapshot(id, day(2024, 5, i), float64(100*i))))
		}

		history, err := testDB.GetSnapshotHistory(ctx, id, day(2024, 5, 2), day(2024, 5, 4))
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "2024-05-02", history[0].Date.Format("2006-01-02"))
		assert.Equal(t, "2024-05-04", history[2].Date.Format("2006-01-02"))
	})
}
