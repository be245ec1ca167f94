package repository

import (
	"time"

	"github.com/mingunkim123/ledger-agent/internal/model"
)

type TransactionEntity struct {
	ID           string    `db:"id"            gorm:"primaryKey;column:id;type:uuid"`
	UserID       string    `db:"user_id"       gorm:"column:user_id;not null;index:idx_tx_user"`
	OccurredDate time.Time `db:"occurred_date" gorm:"column:occurred_date;not null;index:idx_tx_occurred"`
	Type         string    `db:"type"          gorm:"column:type;not null"`
	Amount       int       `db:"amount"        gorm:"column:amount;not null"`
	Currency     string    `db:"currency"      gorm:"column:currency;not null"`
	Category     string    `db:"category"      gorm:"column:category;not null"`
	Subcategory  string    `db:"subcategory"   gorm:"column:subcategory;not null"`
	Merchant     string    `db:"merchant"      gorm:"column:merchant"`
	Memo         string    `db:"memo"          gorm:"column:memo"`
	SourceText   string    `db:"source_text"   gorm:"column:source_text"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:           m.ID,
		UserID:       m.UserID,
		OccurredDate: m.OccurredDate,
		Type:         m.Type,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Category:     m.Category,
		Subcategory:  m.Subcategory,
		Merchant:     m.Merchant,
		Memo:         m.Memo,
		SourceText:   m.SourceText,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:           e.ID,
		UserID:       e.UserID,
		OccurredDate: e.OccurredDate,
		Type:         e.Type,
		Amount:       e.Amount,
		Currency:     e.Currency,
		Category:     e.Category,
		Subcategory:  e.Subcategory,
		Merchant:     e.Merchant,
		Memo:         e.Memo,
		SourceText:   e.SourceText,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
