// Package orchestrator frames transaction extraction as a single
// tool-calling round trip against the model and interprets the outcome.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/llm"
)

const (
	ActionCreate  = "create"
	ActionClarify = "clarify"

	// defaultClarifyReply is used when the model neither called the
	// tool nor produced any text.
	defaultClarifyReply = "다시 한 번 입력해주세요."

	toolName = "create_transaction"
)

// Result is the interpreted model outcome. Args is populated for
// ActionCreate, Reply for ActionClarify.
type Result struct {
	Action string
	Args   map[string]any
	Reply  string
}

type Orchestrator struct {
	gateway llm.Gateway
}

func New(gateway llm.Gateway) *Orchestrator {
	return &Orchestrator{
		gateway: gateway,
	}
}

// Extract runs one extraction round trip. providerOverride selects a
// backend for this call only; empty means the configured default.
func (o *Orchestrator) Extract(ctx context.Context, userID, message, providerOverride string) (*Result, error) {
	userContent := strings.TrimSpace(message)
	if userContent == "" {
		userContent = "입력 없음"
	}

	completion, err := o.gateway.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(time.Now())},
			{Role: llm.RoleUser, Content: userContent},
		},
		Tools:    []llm.Tool{createTransactionTool()},
		Provider: providerOverride,
	})
	if err != nil {
		return nil, err
	}

	if call := completion.ToolCall; call != nil && call.Name == toolName {
		args := call.Arguments
		if args == nil {
			args = make(map[string]any)
		}
		args["user_id"] = userID
		args["source_text"] = message
		return &Result{Action: ActionCreate, Args: args}, nil
	}

	reply := completion.Content
	if reply == "" {
		reply = defaultClarifyReply
	}
	return &Result{Action: ActionClarify, Reply: reply}, nil
}

// systemPrompt embeds the reference date so the model never has to
// infer what "today" means.
func systemPrompt(now time.Time) string {
	today := now.Format("2006-01-02")
	return fmt.Sprintf(`당신은 가계부 기록 도우미입니다.
사용자가 한 줄로 지출/수입을 입력하면, create_transaction 도구를 호출하여 저장합니다.

**오늘 날짜: %s** (날짜를 안 말하면 반드시 이 날짜 사용)

규칙:
1. 날짜 없으면 반드시 %s 사용
2. 금액: "2.3만"→23000, "23,000원"→23000
3. 지출/수입: 구매/결제/먹음→expense, 입금/월급/환급→income
4. 카테고리와 세부 카테고리는 사용자가 명시하지 않아도 문맥으로 반드시 추론
5. 애매하면 도구 호출 금지. 질문 1개만 하세요.
6. 확실할 때만 create_transaction 호출
`, today, today)
}

func createTransactionTool() llm.Tool {
	return llm.Tool{
		Name:        toolName,
		Description: "가계부에 거래 내역을 저장합니다. 사용자가 지출/수입을 입력하면 날짜, 금액, 항목, 카테고리, 세부 카테고리, 지출/수입 유형을 추출하여 호출합니다. 확실할 때만 호출하고, 애매하면 호출하지 말고 질문 1개만 하세요.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"occurred_date": {
					Type:        "string",
					Description: "거래 발생일. YYYY-MM-DD 형식. 없으면 오늘.",
				},
				"type": {
					Type:        "string",
					Enum:        []string{"expense", "income"},
					Description: "지출(expense) 또는 수입(income). 구매/결제/먹음→expense, 입금/월급/환급→income.",
				},
				"amount": {
					Type:        "integer",
					Description: "금액 (원). 23000, 2.3만→23000.",
				},
				"category": {
					Type:        "string",
					Description: "상위 카테고리. 식비/교통/쇼핑/문화/의료/교육/통신/기타 중 하나.",
				},
				"subcategory": {
					Type:        "string",
					Description: "세부 카테고리. 예: 카페, 식사, 택시, 생필품, 영화, 약국, 학원, 통신요금. 애매하면 기타.",
				},
				"merchant": {
					Type:        "string",
					Description: "가맹점/항목 (선택). 예: BHC, 스타벅스.",
				},
				"memo": {
					Type:        "string",
					Description: "메모 (선택).",
				},
			},
			Required: []string{"occurred_date", "type", "amount", "category", "subcategory"},
		},
	}
}
