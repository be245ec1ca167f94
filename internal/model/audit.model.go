package model

import "time"

// AuditAction identifies what happened to a transaction.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionUndo   AuditAction = "undo"
)

// AuditLog is append-only. Create entries carry an after-snapshot,
// undo entries a before-snapshot.
type AuditLog struct {
	ID             string      `json:"id"              db:"id"              gorm:"primaryKey;column:id"`
	UserID         string      `json:"user_id"         db:"user_id"         gorm:"column:user_id;not null;index"`
	TransactionID  string      `json:"transaction_id"  db:"transaction_id"  gorm:"column:transaction_id;not null;index"`
	Action         AuditAction `json:"action"          db:"action"          gorm:"column:action;not null"`
	BeforeSnapshot []byte      `json:"before_snapshot" db:"before_snapshot" gorm:"column:before_snapshot;type:jsonb"`
	AfterSnapshot  []byte      `json:"after_snapshot"  db:"after_snapshot"  gorm:"column:after_snapshot;type:jsonb"`
	CreatedAt      time.Time   `json:"created_at"      db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string { return "audit_logs" }
