package services

import (
	"context"
	"testing"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/llm"
	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, userID, message, providerOverride string) (*orchestrator.Result, error) {
	args := m.Called(ctx, userID, message, providerOverride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orchestrator.Result), args.Error(1)
}

type MockTransactionCreator struct {
	mock.Mock
}

func (m *MockTransactionCreator) Create(ctx context.Context, p model.TransactionCreateRequest) (*CreateResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreateResult), args.Error(1)
}

func TestChatService_Handle_Create(t *testing.T) {
	ctx := context.Background()
	extractor := new(MockExtractor)
	creator := new(MockTransactionCreator)

	extractor.On("Extract", ctx, "u1", "커피 5000원", "").Return(&orchestrator.Result{
		Action: orchestrator.ActionCreate,
		Args: map[string]any{
			"user_id":       "u1",
			"occurred_date": "2024-03-02",
			"type":          "expense",
			"amount":        float64(5000),
			"category":      "식비",
			"subcategory":   "카페",
			"source_text":   "커피 5000원",
		},
	}, nil)

	creator.On("Create", ctx, mock.MatchedBy(func(p model.TransactionCreateRequest) bool {
		return p.UserID == "u1" && p.IdemKey == "idem-1" && p.SourceText == "커피 5000원"
	})).Return(&CreateResult{
		TxID:         "tx-1",
		UndoToken:    "token-1",
		OccurredDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Type:         "expense",
		Amount:       5000,
		Category:     "식비",
		Subcategory:  "카페",
	}, nil)

	svc := NewChatService(extractor, creator)
	res, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "커피 5000원", IdemKey: "idem-1"})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-02 식비/카페 지출 5,000원 기록했어요.", res.Reply)
	assert.Equal(t, "tx-1", res.TxID)
	assert.Equal(t, "token-1", res.UndoToken)
	assert.False(t, res.NeedsClarification)
	extractor.AssertExpectations(t)
	creator.AssertExpectations(t)
}

func TestChatService_Handle_Clarify(t *testing.T) {
	ctx := context.Background()
	extractor := new(MockExtractor)
	creator := new(MockTransactionCreator)

	extractor.On("Extract", ctx, "u1", "점심", "").Return(&orchestrator.Result{
		Action: orchestrator.ActionClarify,
		Reply:  "얼마를 쓰셨나요?",
	}, nil)

	svc := NewChatService(extractor, creator)
	res, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "점심"})
	require.NoError(t, err)

	assert.True(t, res.NeedsClarification)
	assert.Equal(t, "얼마를 쓰셨나요?", res.Reply)
	assert.Empty(t, res.TxID)
	creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_Handle_Cached(t *testing.T) {
	ctx := context.Background()
	extractor := new(MockExtractor)
	creator := new(MockTransactionCreator)

	extractor.On("Extract", ctx, "u1", "커피 5000원", "").Return(&orchestrator.Result{
		Action: orchestrator.ActionCreate,
		Args:   map[string]any{"user_id": "u1", "amount": float64(5000)},
	}, nil)
	creator.On("Create", ctx, mock.Anything).Return(&CreateResult{TxID: "tx-1", Cached: true}, nil)

	svc := NewChatService(extractor, creator)
	res, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "커피 5000원"})
	require.NoError(t, err)

	assert.Equal(t, cachedReply, res.Reply)
	assert.Equal(t, "tx-1", res.TxID)
	assert.Empty(t, res.UndoToken)
	assert.False(t, res.NeedsClarification)
}

func TestChatService_Handle_ValidationBecomesClarification(t *testing.T) {
	ctx := context.Background()
	extractor := new(MockExtractor)
	creator := new(MockTransactionCreator)

	extractor.On("Extract", ctx, "u1", "공짜 커피 0원", "").Return(&orchestrator.Result{
		Action: orchestrator.ActionCreate,
		Args:   map[string]any{"user_id": "u1", "amount": float64(0)},
	}, nil)
	creator.On("Create", ctx, mock.Anything).Return(nil, ErrAmountNotPositive)

	svc := NewChatService(extractor, creator)
	res, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "공짜 커피 0원"})
	require.NoError(t, err)

	assert.True(t, res.NeedsClarification)
	assert.Contains(t, res.Reply, "입력 형식을 확인해주세요")
	assert.Empty(t, res.TxID)
}

func TestChatService_Handle_ProviderErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("bad request", func(t *testing.T) {
		extractor := new(MockExtractor)
		extractor.On("Extract", ctx, "u1", "커피 5000원", "").
			Return(nil, &llm.ProviderError{Provider: "groq", Status: 400})

		svc := NewChatService(extractor, new(MockTransactionCreator))
		_, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "커피 5000원"})
		assert.ErrorIs(t, err, ErrLLMBadRequest)
	})

	t.Run("auth", func(t *testing.T) {
		extractor := new(MockExtractor)
		extractor.On("Extract", ctx, "u1", "커피 5000원", "").
			Return(nil, &llm.ProviderError{Provider: "grok", Status: 403})

		svc := NewChatService(extractor, new(MockTransactionCreator))
		_, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "커피 5000원"})
		assert.ErrorIs(t, err, ErrLLMAuth)
	})

	t.Run("rate limit with working fallback creates transaction", func(t *testing.T) {
		extractor := new(MockExtractor)
		creator := new(MockTransactionCreator)

		extractor.On("Extract", ctx, "u1", "어제 버스 1500원", "").
			Return(nil, &llm.ProviderError{Provider: "groq", Status: 429})

		creator.On("Create", ctx, mock.MatchedBy(func(p model.TransactionCreateRequest) bool {
			amount, _ := p.Amount.(int)
			return p.UserID == "u1" && amount == 1500 && p.Category == "교통" &&
				p.SourceText == "어제 버스 1500원"
		})).Return(&CreateResult{
			TxID:         "tx-1",
			UndoToken:    "token-1",
			OccurredDate: time.Now().AddDate(0, 0, -1),
			Type:         "expense",
			Amount:       1500,
			Category:     "교통",
			Subcategory:  "이동",
		}, nil)

		svc := NewChatService(extractor, creator)
		res, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "어제 버스 1500원"})
		require.NoError(t, err)

		assert.Equal(t, "tx-1", res.TxID)
		assert.False(t, res.NeedsClarification)
		creator.AssertExpectations(t)
	})

	t.Run("rate limit with unusable message surfaces quota error", func(t *testing.T) {
		extractor := new(MockExtractor)
		extractor.On("Extract", ctx, "u1", "안녕", "").
			Return(nil, &llm.ProviderError{Provider: "groq", Status: 429})

		svc := NewChatService(extractor, new(MockTransactionCreator))
		_, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "안녕"})
		assert.ErrorIs(t, err, ErrLLMQuotaExceeded)
	})

	t.Run("unclassified errors propagate", func(t *testing.T) {
		extractor := new(MockExtractor)
		extractor.On("Extract", ctx, "u1", "커피 5000원", "").Return(nil, assert.AnError)

		svc := NewChatService(extractor, new(MockTransactionCreator))
		_, err := svc.Handle(ctx, ChatRequest{UserID: "u1", Message: "커피 5000원"})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestFormatComma(t *testing.T) {
	assert.Equal(t, "0", formatComma(0))
	assert.Equal(t, "999", formatComma(999))
	assert.Equal(t, "5,000", formatComma(5000))
	assert.Equal(t, "23,000", formatComma(23000))
	assert.Equal(t, "1,234,567", formatComma(1234567))
}
