package repository

import (
	"context"
	"errors"

	"github.com/mingunkim123/ledger-agent/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrIdemKeyNotFound is returned when no transaction was recorded
	// for a (user, key) pair.
	ErrIdemKeyNotFound = errors.New("idempotency key not found")
)

type IdempotencyRepository struct {
	*pg.DB
}

func NewIdempotencyRepository(db *pg.DB) *IdempotencyRepository {
	return &IdempotencyRepository{
		db,
	}
}

// GetTransactionID resolves the transaction previously created under key.
func (r *IdempotencyRepository) GetTransactionID(ctx context.Context, userID, key string) (string, error) {
	var entity IdempotencyKeyEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ? AND idem_key = ?", userID, key).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrIdemKeyNotFound
		}
		return "", err
	}
	return entity.TransactionID, nil
}

func (r *IdempotencyRepository) Save(ctx context.Context, userID, key, transactionID string) error {
	entity := &IdempotencyKeyEntity{
		UserID:        userID,
		IdemKey:       key,
		TransactionID: transactionID,
	}
	return r.Write(ctx).WithContext(ctx).Create(entity).Error
}
