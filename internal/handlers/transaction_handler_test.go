package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/internal/services"
	xhttp "github.com/mingunkim123/ledger-agent/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Handle(ctx context.Context, req services.ChatRequest) (*services.ChatResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ChatResult), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Create(ctx context.Context, p model.TransactionCreateRequest) (*services.CreateResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreateResult), args.Error(1)
}

func (m *MockTransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionService) Undo(ctx context.Context, token string) (*services.UndoResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UndoResult), args.Error(1)
}

func (m *MockTransactionService) Summary(ctx context.Context, userID, month string) (*model.Summary, error) {
	args := m.Called(ctx, userID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Summary), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *xhttp.RequestCtx) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &out))
	return out
}

func TestTransactionHandler_Chat(t *testing.T) {
	t.Run("created transaction", func(t *testing.T) {
		chatSvc := new(MockChatService)
		handler := NewTransactionHandler(chatSvc, new(MockTransactionService))

		chatSvc.On("Handle", mock.Anything, services.ChatRequest{
			UserID: "u1", Message: "커피 5000원", IdemKey: "idem-1",
		}).Return(&services.ChatResult{
			Reply:     "2024-03-02 식비/카페 지출 5,000원 기록했어요.",
			TxID:      "tx-1",
			UndoToken: "token-1",
		}, nil)

		ctx := setupTestContext("POST", "/api/v1/chat",
			[]byte(`{"user_id":"u1","message":"커피 5000원","idem_key":"idem-1"}`))
		handler.Chat(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		body := decodeBody(t, ctx)
		assert.Equal(t, "tx-1", body["tx_id"])
		assert.Equal(t, "token-1", body["undo_token"])
		assert.Equal(t, false, body["needs_clarification"])
	})

	t.Run("clarification has null ids", func(t *testing.T) {
		chatSvc := new(MockChatService)
		handler := NewTransactionHandler(chatSvc, new(MockTransactionService))

		chatSvc.On("Handle", mock.Anything, mock.Anything).Return(&services.ChatResult{
			Reply:              "얼마를 쓰셨나요?",
			NeedsClarification: true,
		}, nil)

		ctx := setupTestContext("POST", "/api/v1/chat", []byte(`{"user_id":"u1","message":"점심"}`))
		handler.Chat(ctx)

		body := decodeBody(t, ctx)
		assert.Nil(t, body["tx_id"])
		assert.Nil(t, body["undo_token"])
		assert.Equal(t, true, body["needs_clarification"])
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := NewTransactionHandler(new(MockChatService), new(MockTransactionService))

		ctx := setupTestContext("POST", "/api/v1/chat", []byte(`{"user_id":"u1"}`))
		handler.Chat(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("quota error carries stable code", func(t *testing.T) {
		chatSvc := new(MockChatService)
		handler := NewTransactionHandler(chatSvc, new(MockTransactionService))

		chatSvc.On("Handle", mock.Anything, mock.Anything).Return(nil, services.ErrLLMQuotaExceeded)

		ctx := setupTestContext("POST", "/api/v1/chat", []byte(`{"user_id":"u1","message":"커피 5000원"}`))
		handler.Chat(ctx)

		assert.Equal(t, xhttp.StatusTooManyRequests, ctx.Response.StatusCode())
		assert.Equal(t, "llm_quota_exceeded", decodeBody(t, ctx)["code"])
	})

	t.Run("auth error maps to bad gateway", func(t *testing.T) {
		chatSvc := new(MockChatService)
		handler := NewTransactionHandler(chatSvc, new(MockTransactionService))

		chatSvc.On("Handle", mock.Anything, mock.Anything).Return(nil, services.ErrLLMAuth)

		ctx := setupTestContext("POST", "/api/v1/chat", []byte(`{"user_id":"u1","message":"커피 5000원"}`))
		handler.Chat(ctx)

		assert.Equal(t, xhttp.StatusBadGateway, ctx.Response.StatusCode())
		assert.Equal(t, "llm_auth_error", decodeBody(t, ctx)["code"])
	})
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("Create", mock.Anything, mock.MatchedBy(func(p model.TransactionCreateRequest) bool {
			return p.UserID == "u1" && p.Category == "식비"
		})).Return(&services.CreateResult{TxID: "tx-1", UndoToken: "token-1"}, nil)

		ctx := setupTestContext("POST", "/api/v1/transactions",
			[]byte(`{"user_id":"u1","occurred_date":"2024-03-02","type":"expense","amount":"23,000원","category":"식비"}`))
		handler.CreateTransaction(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		body := decodeBody(t, ctx)
		assert.Equal(t, "tx-1", body["tx_id"])
		assert.Equal(t, false, body["cached"])
	})

	t.Run("cached returns 200 with null token", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("Create", mock.Anything, mock.Anything).
			Return(&services.CreateResult{TxID: "tx-1", Cached: true}, nil)

		ctx := setupTestContext("POST", "/api/v1/transactions",
			[]byte(`{"user_id":"u1","amount":5000,"idem_key":"k"}`))
		handler.CreateTransaction(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		body := decodeBody(t, ctx)
		assert.Equal(t, true, body["cached"])
		assert.Nil(t, body["undo_token"])
	})

	t.Run("validation error is 400", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrAmountNotPositive)

		ctx := setupTestContext("POST", "/api/v1/transactions",
			[]byte(`{"user_id":"u1","amount":0}`))
		handler.CreateTransaction(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Equal(t, "validation_error", decodeBody(t, ctx)["code"])
	})
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("filters parsed from query", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("List", mock.Anything, mock.MatchedBy(func(f model.TransactionFilter) bool {
			return f.UserID == "u1" &&
				f.Category != nil && *f.Category == "식비" &&
				f.From != nil && f.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		})).Return([]*model.Transaction{{ID: "tx-1", UserID: "u1"}}, int64(1), nil)

		ctx := setupTestContext("GET", "/api/v1/transactions?user_id=u1&category=%EC%8B%9D%EB%B9%84&from=2024-01-01", nil)
		handler.ListTransactions(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		body := decodeBody(t, ctx)
		assert.Len(t, body["transactions"], 1)
	})

	t.Run("missing user_id", func(t *testing.T) {
		handler := NewTransactionHandler(new(MockChatService), new(MockTransactionService))

		ctx := setupTestContext("GET", "/api/v1/transactions", nil)
		handler.ListTransactions(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("malformed date filter", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		for _, target := range []string{
			"/api/v1/transactions?user_id=u1&from=garbage",
			"/api/v1/transactions?user_id=u1&to=2024-13-99",
		} {
			ctx := setupTestContext("GET", target, nil)
			handler.ListTransactions(ctx)

			assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
			body := decodeBody(t, ctx)
			assert.Equal(t, "bad_request", body["code"])
		}
		txSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_Undo(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("Undo", mock.Anything, "token-1").
			Return(&services.UndoResult{Success: true, TxID: "tx-1", Message: "저장이 취소되었습니다."}, nil)

		ctx := setupTestContext("POST", "/api/v1/undo", []byte(`{"undo_token":"token-1"}`))
		handler.Undo(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		body := decodeBody(t, ctx)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "tx-1", body["tx_id"])
	})

	t.Run("expired token", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("Undo", mock.Anything, "gone").Return(nil, services.ErrUndoTokenExpired)

		ctx := setupTestContext("POST", "/api/v1/undo", []byte(`{"undo_token":"gone"}`))
		handler.Undo(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Equal(t, "undo_token_expired", decodeBody(t, ctx)["code"])
	})

	t.Run("transaction missing", func(t *testing.T) {
		txSvc := new(MockTransactionService)
		handler := NewTransactionHandler(new(MockChatService), txSvc)

		txSvc.On("Undo", mock.Anything, "token-1").Return(nil, services.ErrTransactionNotFound)

		ctx := setupTestContext("POST", "/api/v1/undo", []byte(`{"undo_token":"token-1"}`))
		handler.Undo(ctx)

		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
		assert.Equal(t, "transaction_not_found", decodeBody(t, ctx)["code"])
	})
}

func TestTransactionHandler_Summary(t *testing.T) {
	txSvc := new(MockTransactionService)
	handler := NewTransactionHandler(new(MockChatService), txSvc)

	txSvc.On("Summary", mock.Anything, "u1", "2024-01").Return(&model.Summary{
		UserID: "u1",
		Month:  "2024-01",
		Total:  350,
		Categories: []model.CategorySum{
			{Category: "식비", Total: 300},
			{Category: "교통", Total: 50},
		},
	}, nil)

	ctx := setupTestContext("GET", "/api/v1/summary?user_id=u1&month=2024-01", nil)
	handler.Summary(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	body := decodeBody(t, ctx)
	assert.Equal(t, "2024-01", body["month"])
	assert.Equal(t, float64(350), body["total"])
	byCategory := body["by_category"].(map[string]any)
	assert.Equal(t, float64(300), byCategory["식비"])
	assert.Equal(t, float64(50), byCategory["교통"])
}
