package model

import (
	"errors"
	"time"
)

// TransactionType is the direction of a ledger entry. Only expenses are
// accepted today; anything else is coerced before persistence.
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "expense"
	TransactionTypeIncome  TransactionType = "income"
)

type Transaction struct {
	ID           string    `json:"transaction_id" db:"id"            gorm:"primaryKey;column:id;type:uuid"`
	UserID       string    `json:"user_id"        db:"user_id"       gorm:"column:user_id;not null;index"`
	OccurredDate time.Time `json:"occurred_date"  db:"occurred_date" gorm:"column:occurred_date;not null"`
	Type         string    `json:"type"           db:"type"          gorm:"column:type;not null"`
	Amount       int       `json:"amount"         db:"amount"        gorm:"column:amount;not null"`
	Currency     string    `json:"currency"       db:"currency"      gorm:"column:currency;not null"`
	Category     string    `json:"category"       db:"category"      gorm:"column:category;not null"`
	Subcategory  string    `json:"subcategory"    db:"subcategory"   gorm:"column:subcategory;not null"`
	Merchant     string    `json:"merchant"       db:"merchant"      gorm:"column:merchant"`
	Memo         string    `json:"memo"           db:"memo"          gorm:"column:memo"`
	SourceText   string    `json:"source_text"    db:"source_text"   gorm:"column:source_text"`
	CreatedAt    time.Time `json:"created_at"     db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at"     db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// TransactionCreateRequest is the raw input for creating a transaction.
// Amount and OccurredDate arrive in whatever shape the caller produced
// ("2.3만", "23,000원", 23000, "03-02") and are normalized downstream.
type TransactionCreateRequest struct {
	UserID       string
	OccurredDate string
	Type         string
	Amount       any
	Currency     string
	Category     string
	Subcategory  string
	Merchant     string
	Memo         string
	SourceText   string
	IdemKey      string
}

func (p TransactionCreateRequest) Validate() error {
	if p.UserID == "" {
		return errors.New("user_id is required")
	}
	if p.Amount == nil {
		return errors.New("amount is required")
	}
	return nil
}

// TransactionFilter controls List queries.
type TransactionFilter struct {
	UserID   string
	Category *string // equals
	From     *time.Time
	To       *time.Time
	Limit    int // default 50
	Offset   int
}

// CategorySum is one row of a monthly summary.
type CategorySum struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// Summary aggregates a user's spending for one month.
type Summary struct {
	UserID     string        `json:"user_id"`
	Month      string        `json:"month"` // YYYY-MM
	Total      int64         `json:"total"`
	Categories []CategorySum `json:"categories"`
}
