package repository

import (
	"time"

	"github.com/mingunkim123/ledger-agent/internal/model"
)

type AuditLogEntity struct {
	ID             string    `db:"id"              gorm:"primaryKey;column:id"`
	UserID         string    `db:"user_id"         gorm:"column:user_id;not null;index"`
	TransactionID  string    `db:"transaction_id"  gorm:"column:transaction_id;not null;index"`
	Action         string    `db:"action"          gorm:"column:action;not null"`
	BeforeSnapshot []byte    `db:"before_snapshot" gorm:"column:before_snapshot;type:jsonb"`
	AfterSnapshot  []byte    `db:"after_snapshot"  gorm:"column:after_snapshot;type:jsonb"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (AuditLogEntity) TableName() string {
	return "audit_logs"
}

func toAuditLogEntity(m *model.AuditLog) *AuditLogEntity {
	if m == nil {
		return nil
	}
	return &AuditLogEntity{
		ID:             m.ID,
		UserID:         m.UserID,
		TransactionID:  m.TransactionID,
		Action:         string(m.Action),
		BeforeSnapshot: m.BeforeSnapshot,
		AfterSnapshot:  m.AfterSnapshot,
		CreatedAt:      m.CreatedAt,
	}
}

func toAuditLogModel(e *AuditLogEntity) *model.AuditLog {
	if e == nil {
		return nil
	}
	return &model.AuditLog{
		ID:             e.ID,
		UserID:         e.UserID,
		TransactionID:  e.TransactionID,
		Action:         model.AuditAction(e.Action),
		BeforeSnapshot: e.BeforeSnapshot,
		AfterSnapshot:  e.AfterSnapshot,
		CreatedAt:      e.CreatedAt,
	}
}

func toAuditLogModels(entities []*AuditLogEntity) []*model.AuditLog {
	if entities == nil {
		return nil
	}
	models := make([]*model.AuditLog, len(entities))
	for i, e := range entities {
		models[i] = toAuditLogModel(e)
	}
	return models
}
