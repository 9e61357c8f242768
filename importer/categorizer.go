package importer

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Suggestion 分类建议，Category 为空表示无法分类
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Categorizer 为交易描述推荐预算分类，返回结果与 descriptions 一一对应
type Categorizer interface {
	Categorize(ctx context.Context, descriptions []string, categories []string) ([]Suggestion, error)
}

// 关键词匹配置信度
const (
	nameMatchConfidence    = 0.9
	keywordMatchConfidence = 0.7
)

// defaultKeywords 内置关键词表，键为默认预算分类名称
var defaultKeywords = map[string][]string{
	"Salary":           {"salary", "payroll", "wages", "pay run"},
	"Family Support":   {"family support", "transfer from mum", "transfer from dad", "remittance"},
	"Scholarship":      {"scholarship", "stipend", "bursary"},
	"Interest":         {"interest", "bonus interest"},
	"Rent":             {"rent", "real estate", "rental bond", "property management"},
	"Groceries":        {"woolworths", "coles", "aldi", "iga", "supermarket", "harris farm"},
	"Utilities":        {"electricity", "agl", "origin energy", "energy australia", "water", "gas bill"},
	"Transport":        {"uber trip", "opal", "myki", "translink", "petrol", "fuel", "parking", "didi"},
	"Phone & Internet": {"telstra", "optus", "vodafone", "internet", "nbn", "mobile plan"},
	"Tuition":          {"tuition", "university", "unsw", "usyd", "monash", "unimelb", "tafe"},
	"Books & Supplies": {"bookshop", "co-op", "officeworks", "textbook"},
	"OSHC Insurance":   {"oshc", "bupa", "allianz care", "medibank", "nib", "ahm"},
	"Visa Fees":        {"visa", "immigration", "home affairs", "immi"},
	"Dining Out":       {"restaurant", "cafe", "coffee", "mcdonald", "kfc", "uber eats", "doordash", "menulog", "hungry jack"},
	"Entertainment":    {"netflix", "spotify", "cinema", "hoyts", "event cinemas", "steam", "disney plus"},
	"Shopping":         {"amazon", "kmart", "target", "big w", "jb hi-fi", "ikea", "myer"},
	"Travel":           {"qantas", "jetstar", "virgin australia", "airbnb", "booking.com", "hotel", "expedia"},
	"Fees & Charges":   {"account fee", "monthly fee", "overdrawn", "international transaction fee", "atm fee"},
}

type keywordEntry struct {
	keyword  string
	category string
}

// KeywordCategorizer 基于描述关键词的分类器
// 先匹配组织自有分类名称，再匹配内置关键词表；同时命中多个时取最长关键词
type KeywordCategorizer struct {
	entries []keywordEntry
}

// NewKeywordCategorizer 创建关键词分类器，extra 可追加或覆盖关键词
func NewKeywordCategorizer(extra map[string][]string) *KeywordCategorizer {
	k := &KeywordCategorizer{}
	for _, src := range []map[string][]string{defaultKeywords, extra} {
		for cat, words := range src {
			for _, w := range words {
				k.entries = append(k.entries, keywordEntry{keyword: strings.ToLower(w), category: cat})
			}
		}
	}
	sort.SliceStable(k.entries, func(i, j int) bool {
		if len(k.entries[i].keyword) != len(k.entries[j].keyword) {
			return len(k.entries[i].keyword) > len(k.entries[j].keyword)
		}
		return k.entries[i].keyword < k.entries[j].keyword
	})
	return k
}

// Categorize 实现 Categorizer
func (k *KeywordCategorizer) Categorize(_ context.Context, descriptions []string, categories []string) ([]Suggestion, error) {
	allowed := make(map[string]string, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		allowed[strings.ToLower(c)] = c
		names = append(names, c)
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	out := make([]Suggestion, len(descriptions))
	for i, d := range descriptions {
		desc := " " + strings.ToLower(d) + " "
		out[i] = k.match(desc, names, allowed)
	}
	return out, nil
}

func (k *KeywordCategorizer) match(desc string, names []string, allowed map[string]string) Suggestion {
	for _, n := range names {
		if containsWord(desc, strings.ToLower(n)) {
			return Suggestion{Category: n, Confidence: nameMatchConfidence}
		}
	}
	for _, e := range k.entries {
		if !strings.Contains(desc, e.keyword) {
			continue
		}
		if len(allowed) == 0 {
			return Suggestion{Category: e.category, Confidence: keywordMatchConfidence}
		}
		if c, ok := allowed[strings.ToLower(e.category)]; ok {
			return Suggestion{Category: c, Confidence: keywordMatchConfidence}
		}
	}
	return Suggestion{}
}

// containsWord 以单词边界匹配
func containsWord(desc, word string) bool {
	if word == "" {
		return false
	}
	idx := strings.Index(desc, word)
	for idx >= 0 {
		before := desc[idx-1]
		end := idx + len(word)
		if !isWordByte(before) && (end >= len(desc) || !isWordByte(desc[end])) {
			return true
		}
		next := strings.Index(desc[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += next + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// FallbackCategorizer 先调用 Primary，失败或未分类的条目交给 Secondary
type FallbackCategorizer struct {
	Primary   Categorizer
	Secondary Categorizer
}

// Categorize 实现 Categorizer
func (f *FallbackCategorizer) Categorize(ctx context.Context, descriptions []string, categories []string) ([]Suggestion, error) {
	primary, err := f.Primary.Categorize(ctx, descriptions, categories)
	if err != nil {
		log.Warn().Err(err).Int("rows", len(descriptions)).Msg("主分类器失败，改用关键词分类")
		return f.Secondary.Categorize(ctx, descriptions, categories)
	}

	var pending []int
	for i := range descriptions {
		if i >= len(primary) || primary[i].Category == "" {
			pending = append(pending, i)
		}
	}
	out := make([]Suggestion, len(descriptions))
	copy(out, primary)
	if len(pending) == 0 {
		return out, nil
	}

	rest := make([]string, len(pending))
	for j, i := range pending {
		rest[j] = descriptions[i]
	}
	secondary, err := f.Secondary.Categorize(ctx, rest, categories)
	if err != nil {
		return out, nil
	}
	for j, i := range pending {
		if j < len(secondary) {
			out[i] = secondary[j]
		}
	}
	return out, nil
}
