package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/llm"
	"github.com/mingunkim123/ledger-agent/internal/model"
	"github.com/mingunkim123/ledger-agent/internal/normalizer"
	"github.com/mingunkim123/ledger-agent/internal/orchestrator"
	"github.com/mingunkim123/ledger-agent/internal/parser"
	"github.com/mingunkim123/ledger-agent/pkg/logger"
	"github.com/mingunkim123/ledger-agent/pkg/prom"
)

var (
	// These carry fixed user-facing guidance. The handler maps them to
	// stable error codes.
	ErrLLMBadRequest    = errors.New("LLM 요청 형식 오류예요. .env에서 모델명과 API 키를 확인해 주세요.")
	ErrLLMQuotaExceeded = errors.New("무료 할당량을 초과했어요. 1분 뒤에 다시 시도해 주세요.")
	ErrLLMAuth          = errors.New("API 키를 확인해 주세요. (Gemini: aistudio.google.com, Groq: console.groq.com, Grok: x.ai)")
)

const (
	cachedReply        = "이미 기록된 내역이에요."
	checkInputReplyFmt = "입력 형식을 확인해주세요. (%s)"
)

type Extractor interface {
	Extract(ctx context.Context, userID, message, providerOverride string) (*orchestrator.Result, error)
}

type TransactionCreator interface {
	Create(ctx context.Context, p model.TransactionCreateRequest) (*CreateResult, error)
}

// ChatRequest is one inbound natural-language message.
type ChatRequest struct {
	UserID      string
	Message     string
	IdemKey     string
	LLMProvider string
}

// ChatResult is what the user sees. TxID and UndoToken are empty when
// no transaction was created.
type ChatResult struct {
	Reply              string
	TxID               string
	UndoToken          string
	NeedsClarification bool
}

type ChatService struct {
	extractor Extractor
	txService TransactionCreator
}

func NewChatService(extractor Extractor, txService TransactionCreator) *ChatService {
	return &ChatService{
		extractor: extractor,
		txService: txService,
	}
}

// Handle turns a free-text message into either a persisted transaction
// with a one-line confirmation, or a clarification question.
func (s *ChatService) Handle(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	result, err := s.extractWithFallback(ctx, req)
	if err != nil {
		prom.IncCounterVec(prom.SystemLedger, prom.MetricChatExtraction, "error")
		return nil, err
	}

	if result.Action == orchestrator.ActionClarify {
		prom.IncCounterVec(prom.SystemLedger, prom.MetricChatExtraction, "clarify")
		return &ChatResult{
			Reply:              result.Reply,
			NeedsClarification: true,
		}, nil
	}

	createReq := RequestFromArgs(result.Args)
	if createReq.UserID == "" {
		createReq.UserID = req.UserID
	}
	if createReq.SourceText == "" {
		createReq.SourceText = req.Message
	}
	createReq.IdemKey = req.IdemKey

	created, err := s.txService.Create(ctx, createReq)
	if err != nil {
		// Format and validation problems become a clarification, not
		// an error response. Nothing was persisted.
		if errors.Is(err, ErrAmountNotPositive) || errors.Is(err, normalizer.ErrAmountFormat) || errors.Is(err, normalizer.ErrDateFormat) {
			prom.IncCounterVec(prom.SystemLedger, prom.MetricChatExtraction, "clarify")
			return &ChatResult{
				Reply:              fmt.Sprintf(checkInputReplyFmt, err),
				NeedsClarification: true,
			}, nil
		}
		return nil, err
	}

	if created.Cached {
		prom.IncCounterVec(prom.SystemLedger, prom.MetricChatExtraction, "cached")
		return &ChatResult{
			Reply: cachedReply,
			TxID:  created.TxID,
		}, nil
	}

	prom.IncCounterVec(prom.SystemLedger, prom.MetricChatExtraction, "created")
	return &ChatResult{
		Reply:     confirmationReply(created),
		TxID:      created.TxID,
		UndoToken: created.UndoToken,
	}, nil
}

// extractWithFallback interprets provider failures: bad request and
// auth problems get fixed guidance, a rate limit gets one shot at the
// deterministic parser before giving up.
func (s *ChatService) extractWithFallback(ctx context.Context, req ChatRequest) (*orchestrator.Result, error) {
	result, err := s.extractor.Extract(ctx, req.UserID, req.Message, req.LLMProvider)
	if err == nil {
		return result, nil
	}

	switch {
	case llm.IsBadRequest(err):
		return nil, ErrLLMBadRequest
	case llm.IsRateLimit(err):
		fallback := parser.ParseSimpleExpense(req.Message, time.Now())
		if fallback == nil {
			return nil, ErrLLMQuotaExceeded
		}
		logger.Warn("llm rate limited, fallback parser succeeded", "user_id", req.UserID)
		prom.IncCounterVec(prom.SystemLedger, prom.MetricChatExtraction, "fallback")
		return &orchestrator.Result{
			Action: orchestrator.ActionCreate,
			Args: map[string]any{
				"user_id":       req.UserID,
				"occurred_date": fallback.OccurredDate,
				"type":          fallback.Type,
				"amount":        fallback.Amount,
				"category":      fallback.Category,
				"subcategory":   fallback.Subcategory,
				"merchant":      fallback.Merchant,
				"memo":          fallback.Memo,
				"source_text":   req.Message,
			},
		}, nil
	case llm.IsAuth(err):
		return nil, ErrLLMAuth
	}
	return nil, err
}

func confirmationReply(r *CreateResult) string {
	typeLabel := "지출"
	if r.Type == "income" {
		typeLabel = "수입"
	}
	return fmt.Sprintf("%s %s/%s %s %s원 기록했어요.",
		r.OccurredDate.Format("2006-01-02"),
		r.Category, r.Subcategory,
		typeLabel, formatComma(r.Amount))
}

// formatComma renders 23000 as "23,000".
func formatComma(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
