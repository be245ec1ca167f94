package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(tx)
	if entity.ID == "" {
		// IDs are minted here rather than by the database so entities
		// round-trip identically on every supported driver.
		entity.ID = uuid.New().String()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// Get looks a transaction up by id alone. Undo tokens carry no user,
// so the undo path has to resolve ownership from the row itself.
func (r *TransactionRepository) Get(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Where("user_id = ?", f.UserID)

	if f.Category != nil && *f.Category != "" {
		q = q.Where("category = ?", *f.Category)
	}
	if f.From != nil {
		q = q.Where("occurred_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("occurred_date < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TransactionEntity
	err := q.Order("occurred_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}

// Delete removes a transaction together with any idempotency keys that
// reference it, inside one database transaction so an undo can never
// leave a dangling key behind.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	return r.WithinTransaction(ctx, func(txCtx context.Context) error {
		db := r.Write(txCtx).WithContext(txCtx)

		if err := db.Where("transaction_id = ?", id).
			Delete(&IdempotencyKeyEntity{}).Error; err != nil {
			return err
		}

		res := db.Where("id = ? AND user_id = ?", id, userID).
			Delete(&TransactionEntity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SumByCategory aggregates a user's expenses per category within [from, to).
func (r *TransactionRepository) SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]model.CategorySum, error) {
	var sums []model.CategorySum
	err := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{}).
		Select("category, SUM(amount) AS total").
		Where("user_id = ? AND type = ? AND occurred_date >= ? AND occurred_date < ?",
			userID, string(model.TransactionTypeExpense), from, to).
		Group("category").
		Order("total DESC").
		Find(&sums).Error
	if err != nil {
		return nil, err
	}
	return sums, nil
}
