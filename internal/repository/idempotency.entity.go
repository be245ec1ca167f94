package repository

import "time"

type IdempotencyKeyEntity struct {
	ID            int64     `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	UserID        string    `db:"user_id"        gorm:"column:user_id;not null;uniqueIndex:uniq_user_idem_key"`
	IdemKey       string    `db:"idem_key"       gorm:"column:idem_key;not null;uniqueIndex:uniq_user_idem_key"`
	TransactionID string    `db:"transaction_id" gorm:"column:transaction_id;not null;index"`
	CreatedAt     time.Time `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (IdempotencyKeyEntity) TableName() string {
	return "idempotency_keys"
}
