package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpense(userID string, occurred time.Time, amount int, category string) *model.Transaction {
	return &model.Transaction{
		UserID:       userID,
		OccurredDate: occurred,
		Type:         string(model.TransactionTypeExpense),
		Amount:       amount,
		Currency:     "KRW",
		Category:     category,
		Subcategory:  "기타",
	}
}

func TestTransactionRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("create transaction successfully", func(t *testing.T) {
		tx := newExpense("u1", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 5000, "식비")
		tx.Merchant = "스타벅스"

		created, err := repo.Create(ctx, tx)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "u1", created.UserID)
		assert.Equal(t, 5000, created.Amount)
		assert.Equal(t, "스타벅스", created.Merchant)
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("ids are unique per create", func(t *testing.T) {
		a, err := repo.Create(ctx, newExpense("u1", time.Now(), 100, "기타"))
		require.NoError(t, err)
		b, err := repo.Create(ctx, newExpense("u1", time.Now(), 100, "기타"))
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newExpense("u1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 3000, "교통"))
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, 3000, got.Amount)
	})

	t.Run("not found for wrong user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "someone-else", created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not found for unknown id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "u1", "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTransactionRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		_, err := repo.Create(ctx, newExpense("u1", d, 1000, "식비"))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, newExpense("u2", dates[0], 9999, "쇼핑"))
	require.NoError(t, err)

	t.Run("orders by occurred date descending", func(t *testing.T) {
		txs, total, err := repo.List(ctx, model.TransactionFilter{UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, txs, 3)
		assert.Equal(t, 3, txs[0].OccurredDate.Day())
		assert.Equal(t, 2, txs[1].OccurredDate.Day())
		assert.Equal(t, 1, txs[2].OccurredDate.Day())
	})

	t.Run("ties broken by created_at descending", func(t *testing.T) {
		first, err := repo.Create(ctx, newExpense("u3", dates[0], 100, "식비"))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		second, err := repo.Create(ctx, newExpense("u3", dates[0], 200, "식비"))
		require.NoError(t, err)

		txs, _, err := repo.List(ctx, model.TransactionFilter{UserID: "u3"})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, second.ID, txs[0].ID)
		assert.Equal(t, first.ID, txs[1].ID)
	})

	t.Run("filters by category", func(t *testing.T) {
		category := "쇼핑"
		txs, total, err := repo.List(ctx, model.TransactionFilter{UserID: "u2", Category: &category})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, txs, 1)
		assert.Equal(t, 9999, txs[0].Amount)
	})

	t.Run("filters by date window", func(t *testing.T) {
		from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
		txs, total, err := repo.List(ctx, model.TransactionFilter{UserID: "u1", From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, txs, 1)
		assert.Equal(t, 2, txs[0].OccurredDate.Day())
	})

	t.Run("does not leak other users", func(t *testing.T) {
		txs, total, err := repo.List(ctx, model.TransactionFilter{UserID: "u2"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		for _, tx := range txs {
			assert.Equal(t, "u2", tx.UserID)
		}
	})
}

func TestTransactionRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	idemRepo := NewIdempotencyRepository(db.DB)
	ctx := context.Background()

	t.Run("delete removes idempotency keys too", func(t *testing.T) {
		created, err := repo.Create(ctx, newExpense("u1", time.Now(), 100, "식비"))
		require.NoError(t, err)
		require.NoError(t, idemRepo.Save(ctx, "u1", "key-1", created.ID))

		require.NoError(t, repo.Delete(ctx, "u1", created.ID))

		_, err = repo.GetByID(ctx, "u1", created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = idemRepo.GetTransactionID(ctx, "u1", "key-1")
		assert.ErrorIs(t, err, ErrIdemKeyNotFound)
	})

	t.Run("delete of missing transaction reports not found", func(t *testing.T) {
		err := repo.Delete(ctx, "u1", "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete scoped to owner", func(t *testing.T) {
		created, err := repo.Create(ctx, newExpense("u1", time.Now(), 100, "식비"))
		require.NoError(t, err)

		err = repo.Delete(ctx, "u2", created.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := repo.GetByID(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})
}

func TestTransactionRepository_SumByCategory(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	jan := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	_, err := repo.Create(ctx, newExpense("u1", jan(5), 200, "식비"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newExpense("u1", jan(9), 100, "식비"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newExpense("u1", jan(12), 50, "교통"))
	require.NoError(t, err)
	// outside the window
	_, err = repo.Create(ctx, newExpense("u1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 777, "쇼핑"))
	require.NoError(t, err)

	sums, err := repo.SumByCategory(ctx, "u1",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, sums, 2)
	assert.Equal(t, "식비", sums[0].Category)
	assert.Equal(t, int64(300), sums[0].Total)
	assert.Equal(t, "교통", sums[1].Category)
	assert.Equal(t, int64(50), sums[1].Total)
}
