package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/internal/normalizer"
	"github.com/mingunkim123/ledger-agent/internal/services"
	xhttp "github.com/mingunkim123/ledger-agent/pkg/http"
)

type ChatService interface {
	Handle(ctx context.Context, req services.ChatRequest) (*services.ChatResult, error)
}

type TransactionService interface {
	Create(ctx context.Context, p model.TransactionCreateRequest) (*services.CreateResult, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	Undo(ctx context.Context, token string) (*services.UndoResult, error)
	Summary(ctx context.Context, userID, month string) (*model.Summary, error)
}

type TransactionHandler struct {
	chatSvc ChatService
	txSvc   TransactionService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/chat", h.Chat)
	e.POST("/transactions", h.CreateTransaction)
	e.GET("/transactions", h.ListTransactions)
	e.POST("/undo", h.Undo)
	e.GET("/summary", h.Summary)
}

func NewTransactionHandler(chatSvc ChatService, txSvc TransactionService) *TransactionHandler {
	return &TransactionHandler{
		chatSvc: chatSvc,
		txSvc:   txSvc,
	}
}

type chatRequest struct {
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	IdemKey     string `json:"idem_key"`
	LLMProvider string `json:"llm_provider"`
}

type chatResponse struct {
	Reply              string  `json:"reply"`
	TxID               *string `json:"tx_id"`
	UndoToken          *string `json:"undo_token"`
	NeedsClarification bool    `json:"needs_clarification"`
}

type createTransactionRequest struct {
	UserID       string `json:"user_id"`
	OccurredDate string `json:"occurred_date"`
	Type         string `json:"type"`
	Amount       any    `json:"amount"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory"`
	Currency     string `json:"currency"`
	Merchant     string `json:"merchant"`
	Memo         string `json:"memo"`
	SourceText   string `json:"source_text"`
	IdemKey      string `json:"idem_key"`
}

type createTransactionResponse struct {
	TxID      string  `json:"tx_id"`
	Cached    bool    `json:"cached"`
	UndoToken *string `json:"undo_token"`
}

type listTransactionsResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
}

type undoRequest struct {
	UndoToken string `json:"undo_token"`
}

type undoResponse struct {
	Success bool   `json:"success"`
	TxID    string `json:"tx_id"`
	Message string `json:"message"`
}

type summaryResponse struct {
	Month      string           `json:"month"`
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TransactionHandler) Chat(ctx *xhttp.RequestCtx) {
	var req chatRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "user_id and message are required")
		return
	}

	res, err := h.chatSvc.Handle(ctx, services.ChatRequest{
		UserID:      req.UserID,
		Message:     req.Message,
		IdemKey:     req.IdemKey,
		LLMProvider: req.LLMProvider,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, chatResponse{
		Reply:              res.Reply,
		TxID:               nullable(res.TxID),
		UndoToken:          nullable(res.UndoToken),
		NeedsClarification: res.NeedsClarification,
	})
}

func (h *TransactionHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	var req createTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}

	res, err := h.txSvc.Create(ctx, model.TransactionCreateRequest{
		UserID:       req.UserID,
		OccurredDate: req.OccurredDate,
		Type:         req.Type,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Category:     req.Category,
		Subcategory:  req.Subcategory,
		Merchant:     req.Merchant,
		Memo:         req.Memo,
		SourceText:   req.SourceText,
		IdemKey:      req.IdemKey,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	status := xhttp.StatusCreated
	if res.Cached {
		status = xhttp.StatusOK
	}
	writeJSON(ctx, status, createTransactionResponse{
		TxID:      res.TxID,
		Cached:    res.Cached,
		UndoToken: nullable(res.UndoToken),
	})
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	userID := query(ctx, "user_id")
	if userID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "user_id is required")
		return
	}

	f := model.TransactionFilter{UserID: userID}
	if v := query(ctx, "category"); v != "" {
		f.Category = &v
	}
	if v := query(ctx, "from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "bad_request", "from must be YYYY-MM-DD")
			return
		}
		f.From = &t
	}
	if v := query(ctx, "to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "bad_request", "to must be YYYY-MM-DD")
			return
		}
		f.To = &t
	}

	items, total, err := h.txSvc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.Transaction{}
	}
	writeJSON(ctx, xhttp.StatusOK, listTransactionsResponse{Transactions: items, Total: total})
}

func (h *TransactionHandler) Undo(ctx *xhttp.RequestCtx) {
	var req undoRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}
	if req.UndoToken == "" {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "undo_token is required")
		return
	}

	res, err := h.txSvc.Undo(ctx, req.UndoToken)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, undoResponse{
		Success: res.Success,
		TxID:    res.TxID,
		Message: res.Message,
	})
}

func (h *TransactionHandler) Summary(ctx *xhttp.RequestCtx) {
	userID := query(ctx, "user_id")
	month := query(ctx, "month")
	if userID == "" || month == "" {
		writeError(ctx, xhttp.StatusBadRequest, "bad_request", "user_id and month are required")
		return
	}

	sum, err := h.txSvc.Summary(ctx, userID, month)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	byCategory := make(map[string]int64, len(sum.Categories))
	for _, c := range sum.Categories {
		byCategory[c.Category] = c.Total
	}
	writeJSON(ctx, xhttp.StatusOK, summaryResponse{
		Month:      sum.Month,
		Total:      sum.Total,
		ByCategory: byCategory,
	})
}

/* --------------------------------- Errors ----------------------------------- */

// writeServiceError maps service sentinels to stable wire codes so
// clients can branch without parsing Korean text.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrLLMBadRequest):
		writeError(ctx, xhttp.StatusBadGateway, "llm_bad_request", services.ErrLLMBadRequest.Error())
	case errors.Is(err, services.ErrLLMQuotaExceeded):
		writeError(ctx, xhttp.StatusTooManyRequests, "llm_quota_exceeded", services.ErrLLMQuotaExceeded.Error())
	case errors.Is(err, services.ErrLLMAuth):
		writeError(ctx, xhttp.StatusBadGateway, "llm_auth_error", services.ErrLLMAuth.Error())
	case errors.Is(err, services.ErrUndoTokenExpired):
		writeError(ctx, xhttp.StatusBadRequest, "undo_token_expired",
			"undo_token이 만료됐거나 잘못됐습니다. 5분 이내에 다시 시도해주세요.")
	case errors.Is(err, services.ErrTransactionNotFound):
		writeError(ctx, xhttp.StatusNotFound, "transaction_not_found", "해당 트랜잭션을 찾을 수 없습니다.")
	case errors.Is(err, services.ErrAmountNotPositive),
		errors.Is(err, normalizer.ErrAmountFormat),
		errors.Is(err, normalizer.ErrDateFormat):
		writeError(ctx, xhttp.StatusBadRequest, "validation_error", err.Error())
	default:
		writeError(ctx, xhttp.StatusBadGateway, "upstream_error", err.Error())
	}
}

/* --------------------------------- Helpers ----------------------------------- */

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, code, detail string) {
	writeJSON(ctx, status, map[string]string{"code": code, "detail": detail})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
