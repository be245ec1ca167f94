package normalizer

import (
	"strings"
)

// CatchAll is the category/subcategory every unresolvable input falls back to.
const CatchAll = "기타"

const maxSubcategoryLen = 30

// Categories is the closed set of top-level spending categories. Anything
// outside this set must be mapped through an alias or a keyword rule, or it
// ends up in CatchAll.
var Categories = map[string]struct{}{
	"식비": {},
	"교통": {},
	"쇼핑": {},
	"문화": {},
	"의료": {},
	"교육": {},
	"통신": {},
	"기타": {},
}

// categoryAliases maps legacy/synonym category inputs onto canonical ones.
var categoryAliases = map[string]string{
	"카페": "식비",
	"구독": "통신",
	"생활": "기타",
	"여행": "문화",
	"식사": "식비",
}

type categoryRule struct {
	keywords    []string
	category    string
	subcategory string
}

// categoryRules is an ordered decision table evaluated first-match-wins
// against keyword substrings. Order matters: 커피 belongs to 식비/카페 even
// though 카페 also appears in other contexts.
var categoryRules = []categoryRule{
	{
		keywords:    []string{"점심", "저녁", "아침", "식당", "배달", "치킨", "피자", "햄버거", "분식", "밥"},
		category:    "식비",
		subcategory: "식사",
	},
	{
		keywords:    []string{"커피", "카페", "스타벅스", "투썸", "이디야", "메가커피", "컴포즈"},
		category:    "식비",
		subcategory: "카페",
	},
	{
		keywords:    []string{"버스", "지하철", "택시", "주유", "주차", "기차", "ktx", "교통"},
		category:    "교통",
		subcategory: "이동",
	},
	{
		keywords:    []string{"쿠팡", "네이버쇼핑", "마트", "편의점", "다이소", "쇼핑", "의류", "신발"},
		category:    "쇼핑",
		subcategory: "생필품",
	},
	{
		keywords:    []string{"영화", "넷플릭스", "디즈니", "유튜브", "콘서트", "전시", "게임", "여행"},
		category:    "문화",
		subcategory: "여가",
	},
	{
		keywords:    []string{"병원", "약국", "치과", "진료", "약", "의료"},
		category:    "의료",
		subcategory: "진료/약제",
	},
	{
		keywords:    []string{"학원", "교재", "강의", "수업", "책", "교육"},
		category:    "교육",
		subcategory: "학습",
	},
	{
		keywords:    []string{"통신비", "휴대폰", "요금제", "인터넷", "구독", "멜론", "스포티파이"},
		category:    "통신",
		subcategory: "통신/구독",
	},
}

// NormalizeCategory maps a raw category string onto the canonical set.
// Resolution order: alias table, keyword rules, canonical passthrough,
// then CatchAll.
func NormalizeCategory(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CatchAll
	}
	if canonical, ok := categoryAliases[s]; ok {
		return canonical
	}
	folded := foldForMatch(s)
	for _, rule := range categoryRules {
		if matchesAny(folded, rule.keywords) {
			return rule.category
		}
	}
	if _, ok := Categories[s]; ok {
		return s
	}
	return CatchAll
}

// NormalizeSubcategory trims and truncates a subcategory, defaulting empty
// input to CatchAll.
func NormalizeSubcategory(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CatchAll
	}
	r := []rune(s)
	if len(r) > maxSubcategoryLen {
		return string(r[:maxSubcategoryLen])
	}
	return s
}

// InferCategorySubcategory jointly infers (category, subcategory) from free
// text and a merchant name using the keyword decision table. When no rule
// matches but a merchant is present, the merchant becomes the subcategory.
func InferCategorySubcategory(sourceText, merchant string) (string, string) {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(sourceText) != "" {
		parts = append(parts, sourceText)
	}
	if strings.TrimSpace(merchant) != "" {
		parts = append(parts, merchant)
	}
	raw := strings.TrimSpace(strings.Join(parts, " "))
	if raw == "" {
		return CatchAll, CatchAll
	}

	folded := foldForMatch(raw)
	for _, rule := range categoryRules {
		if matchesAny(folded, rule.keywords) {
			return rule.category, rule.subcategory
		}
	}

	if strings.TrimSpace(merchant) != "" {
		return CatchAll, NormalizeSubcategory(merchant)
	}
	return CatchAll, CatchAll
}

// ResolveCategorySubcategory reconciles caller-supplied category/subcategory
// with the inferred pair. An explicit category wins unless it resolves to
// CatchAll while inference found something more specific.
func ResolveCategorySubcategory(category, subcategory, sourceText, merchant string) (string, string) {
	inferredCategory, inferredSubcategory := InferCategorySubcategory(sourceText, merchant)

	raw := category
	if strings.TrimSpace(raw) == "" {
		raw = inferredCategory
	}
	resolved := NormalizeCategory(raw)
	if resolved == CatchAll && inferredCategory != CatchAll {
		resolved = inferredCategory
	}

	selected := subcategory
	if strings.TrimSpace(selected) == "" {
		switch {
		case resolved == inferredCategory:
			selected = inferredSubcategory
		case strings.TrimSpace(merchant) != "":
			selected = merchant
		default:
			selected = CatchAll
		}
	}

	return resolved, NormalizeSubcategory(selected)
}

func foldForMatch(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func matchesAny(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, foldForMatch(kw)) {
			return true
		}
	}
	return false
}
