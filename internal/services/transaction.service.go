package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/internal/normalizer"
	"github.com/mingunkim123/ledger-agent/internal/repository"
	"github.com/mingunkim123/ledger-agent/internal/undo"
	"github.com/mingunkim123/ledger-agent/pkg/logger"
	"github.com/mingunkim123/ledger-agent/pkg/prom"
)

var (
	// ErrAmountNotPositive rejects zero and negative amounts after
	// normalization. The text is user-facing.
	ErrAmountNotPositive = errors.New("금액은 0보다 커야 합니다")

	ErrUndoTokenExpired    = errors.New("undo token expired")
	ErrTransactionNotFound = errors.New("transaction not found")
)

const undoDoneMessage = "저장이 취소되었습니다."

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
	Get(ctx context.Context, id string) (*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	Delete(ctx context.Context, userID, id string) error
	SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]model.CategorySum, error)
}

type IdempotencyRepository interface {
	GetTransactionID(ctx context.Context, userID, key string) (string, error)
	Save(ctx context.Context, userID, key, transactionID string) error
}

type AuditRepository interface {
	Append(ctx context.Context, log *model.AuditLog) (*model.AuditLog, error)
}

type UndoTokenStore interface {
	Issue(transactionID string) (string, time.Duration, error)
	Consume(token string) (string, error)
}

type TransactionService struct {
	txRepo          TransactionRepository
	idemRepo        IdempotencyRepository
	auditRepo       AuditRepository
	undoStore       UndoTokenStore
	defaultCurrency string
}

func NewTransactionService(txRepo TransactionRepository, idemRepo IdempotencyRepository, auditRepo AuditRepository, undoStore UndoTokenStore, defaultCurrency string) *TransactionService {
	return &TransactionService{
		txRepo:          txRepo,
		idemRepo:        idemRepo,
		auditRepo:       auditRepo,
		undoStore:       undoStore,
		defaultCurrency: defaultCurrency,
	}
}

// CreateResult reports one create call. Cached means the idempotency
// key already had a transaction and nothing new was persisted.
type CreateResult struct {
	TxID         string
	Cached       bool
	UndoToken    string
	OccurredDate time.Time
	Type         string
	Amount       int
	Category     string
	Subcategory  string
}

// UndoResult reports one consumed undo token.
type UndoResult struct {
	Success bool
	TxID    string
	Message string
}

// Create runs the persistence pipeline: idempotency check, validate,
// normalize, persist, idempotency save, audit, undo token. The steps
// are ordered so a key never maps to a missing row and a token never
// references one either.
func (s *TransactionService) Create(ctx context.Context, p model.TransactionCreateRequest) (*CreateResult, error) {
	start := time.Now()
	defer func() {
		prom.AddHistogram(prom.SystemLedger, prom.MetricCreateDuration, time.Since(start).Seconds())
	}()

	// The idempotency key is checked before anything else. A retry of
	// an already-persisted request short-circuits even if the retry
	// itself arrives malformed.
	if p.IdemKey != "" {
		cached, err := s.idemRepo.GetTransactionID(ctx, p.UserID, p.IdemKey)
		if err == nil {
			return &CreateResult{TxID: cached, Cached: true}, nil
		}
		if !errors.Is(err, repository.ErrIdemKeyNotFound) {
			return nil, err
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	// Unparseable dates fall back to today instead of failing the
	// whole request. Amount errors do fail it.
	now := time.Now()
	occurred := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if p.OccurredDate != "" {
		if d, err := normalizer.NormalizeDate(p.OccurredDate, now); err == nil {
			occurred = d
		}
	}

	amount, err := normalizer.NormalizeAmount(p.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrAmountNotPositive
	}

	category, subcategory := normalizer.ResolveCategorySubcategory(p.Category, p.Subcategory, p.SourceText, p.Merchant)

	txType := p.Type
	if txType != string(model.TransactionTypeExpense) && txType != string(model.TransactionTypeIncome) {
		txType = string(model.TransactionTypeExpense)
	}

	currency := p.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	created, err := s.txRepo.Create(ctx, &model.Transaction{
		UserID:       p.UserID,
		OccurredDate: occurred,
		Type:         txType,
		Amount:       amount,
		Currency:     currency,
		Category:     category,
		Subcategory:  subcategory,
		Merchant:     p.Merchant,
		Memo:         p.Memo,
		SourceText:   p.SourceText,
	})
	if err != nil {
		return nil, err
	}

	if p.IdemKey != "" {
		if err := s.idemRepo.Save(ctx, p.UserID, p.IdemKey, created.ID); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, created.UserID, created.ID, model.AuditActionCreate, created)

	token, _, err := s.undoStore.Issue(created.ID)
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		TxID:         created.ID,
		Cached:       false,
		UndoToken:    token,
		OccurredDate: created.OccurredDate,
		Type:         created.Type,
		Amount:       created.Amount,
		Category:     created.Category,
		Subcategory:  created.Subcategory,
	}, nil
}

// List returns a user's transactions, newest first. The To bound is
// inclusive on the wire, so it widens by a day before hitting the
// repository's half-open range.
func (s *TransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	if f.To != nil {
		to := f.To.AddDate(0, 0, 1)
		f.To = &to
	}
	return s.txRepo.List(ctx, f)
}

// Undo consumes a token and deletes the transaction it references. The
// token is redeemed atomically up front, so a concurrent second undo
// with the same token loses before any row is touched. The audit entry
// is written before the delete so the snapshot is always complete.
func (s *TransactionService) Undo(ctx context.Context, token string) (*UndoResult, error) {
	txID, err := s.undoStore.Consume(token)
	if err != nil {
		if errors.Is(err, undo.ErrTokenExpired) {
			prom.IncCounterVec(prom.SystemLedger, prom.MetricUndo, "expired")
			return nil, ErrUndoTokenExpired
		}
		// Store failures are not the user's fault. The token may
		// still be live, so do not claim the undo window passed.
		return nil, err
	}

	tx, err := s.txRepo.Get(ctx, txID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			prom.IncCounterVec(prom.SystemLedger, prom.MetricUndo, "not_found")
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	s.audit(ctx, tx.UserID, tx.ID, model.AuditActionUndo, tx)

	if err := s.txRepo.Delete(ctx, tx.UserID, tx.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			prom.IncCounterVec(prom.SystemLedger, prom.MetricUndo, "not_found")
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	prom.IncCounterVec(prom.SystemLedger, prom.MetricUndo, "ok")
	return &UndoResult{
		Success: true,
		TxID:    tx.ID,
		Message: undoDoneMessage,
	}, nil
}

// Summary aggregates a user's expenses for one "YYYY-MM" month.
func (s *TransactionService) Summary(ctx context.Context, userID, month string) (*model.Summary, error) {
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, err
	}
	to := from.AddDate(0, 1, 0)

	sums, err := s.txRepo.SumByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range sums {
		total += c.Total
	}

	return &model.Summary{
		UserID:     userID,
		Month:      month,
		Total:      total,
		Categories: sums,
	}, nil
}

// audit failures are logged, not propagated. Losing an audit row must
// not roll back a user-visible operation. Creates record the state
// after the write, undos the state before the delete.
func (s *TransactionService) audit(ctx context.Context, userID, txID string, action model.AuditAction, tx *model.Transaction) {
	snapshot, err := json.Marshal(tx)
	if err != nil {
		logger.Error("could not marshal audit snapshot", "tx_id", txID, "error", err)
		return
	}
	entry := &model.AuditLog{
		UserID:        userID,
		TransactionID: txID,
		Action:        action,
	}
	if action == model.AuditActionCreate {
		entry.AfterSnapshot = snapshot
	} else {
		entry.BeforeSnapshot = snapshot
	}
	if _, err := s.auditRepo.Append(ctx, entry); err != nil {
		logger.Error("could not append audit log", "tx_id", txID, "action", string(action), "error", err)
	}
}

// RequestFromArgs adapts extracted tool-call arguments into a create
// request. Amount stays untyped on purpose; the normalizer handles
// every shape the model produces.
func RequestFromArgs(args map[string]any) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		UserID:       stringArg(args, "user_id"),
		OccurredDate: stringArg(args, "occurred_date"),
		Type:         stringArg(args, "type"),
		Amount:       args["amount"],
		Currency:     stringArg(args, "currency"),
		Category:     stringArg(args, "category"),
		Subcategory:  stringArg(args, "subcategory"),
		Merchant:     stringArg(args, "merchant"),
		Memo:         stringArg(args, "memo"),
		SourceText:   stringArg(args, "source_text"),
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
