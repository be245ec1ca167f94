package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/pkg/pg"
)

type AuditRepository struct {
	*pg.DB
}

func NewAuditRepository(db *pg.DB) *AuditRepository {
	return &AuditRepository{
		db,
	}
}

func (r *AuditRepository) Append(ctx context.Context, log *model.AuditLog) (*model.AuditLog, error) {
	entity := toAuditLogEntity(log)
	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toAuditLogModel(entity), nil
}

func (r *AuditRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*model.AuditLog, error) {
	var entities []*AuditLogEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toAuditLogModels(entities), nil
}
