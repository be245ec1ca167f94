// Package parser extracts a best-effort expense from plain text without an
// LLM call. It backs the chat pipeline when the provider is rate-limited.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/normalizer"
)

const maxMerchantLen = 20

var (
	reMan   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*만`)
	reCheon = regexp.MustCompile(`(\d+)\s*천`)
	rePlain = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*|\d+)\s*원?`)

	// reAmountLike strips every amount-shaped substring so the residual text
	// can serve as a merchant/description guess.
	reAmountLike = regexp.MustCompile(`\d+(?:\.\d+)?\s*만|\d+\s*천|\d{1,3}(?:,\d{3})*\s*원?|\d+\s*원?`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Extraction mirrors the argument shape the LLM tool call produces, so the
// two paths feed the same create pipeline.
type Extraction struct {
	OccurredDate string
	Type         string
	Amount       int
	Category     string
	Subcategory  string
	Merchant     string
	Memo         string
	SourceText   string
}

// ParseSimpleExpense extracts (date, amount, category) from a short expense
// sentence. Returns nil when the message is under 2 runes or no amount
// pattern matches; the caller must not fall back any further.
func ParseSimpleExpense(message string, ref time.Time) *Extraction {
	msg := strings.TrimSpace(message)
	if len([]rune(msg)) < 2 {
		return nil
	}

	occurred := ref
	if strings.Contains(msg, "어제") {
		occurred = ref.AddDate(0, 0, -1)
		msg = strings.TrimSpace(strings.ReplaceAll(msg, "어제", ""))
	} else if strings.Contains(msg, "오늘") {
		msg = strings.TrimSpace(strings.ReplaceAll(msg, "오늘", ""))
	}

	amount := parseAmount(msg)
	if amount <= 0 {
		return nil
	}

	rest := reAmountLike.ReplaceAllString(msg, "")
	rest = strings.TrimSpace(reSpaces.ReplaceAllString(rest, " "))
	if rest == "" {
		rest = normalizer.CatchAll
	}

	category, subcategory := normalizer.InferCategorySubcategory(rest, rest)

	merchant := rest
	if r := []rune(merchant); len(r) > maxMerchantLen {
		merchant = string(r[:maxMerchantLen])
	}

	return &Extraction{
		OccurredDate: occurred.Format("2006-01-02"),
		Type:         "expense",
		Amount:       amount,
		Category:     category,
		Subcategory:  subcategory,
		Merchant:     merchant,
		SourceText:   message,
	}
}

// parseAmount tries the 만 (×10,000), 천 (×1,000) and plain-digit patterns
// in that order.
func parseAmount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))

	if m := reMan.FindStringSubmatch(s); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int(math.Round(f * 10_000))
		}
	}
	if m := reCheon.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n * 1_000
		}
	}
	if m := rePlain.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err == nil {
			return n
		}
	}
	return 0
}
