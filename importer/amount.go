package importer

import (
	"fmt"
	"strings"
	"unicode"

	"globfam/models"

	"github.com/shopspring/decimal"
)

// ParseAmount 解析银行导出的金额
// 去除货币符号、币种代码、千分位与空格；(12.50)、结尾 DR 或 - 为负数，结尾 CR 为正数
// 数字之间出现字母或 - 视为非法，科学计数法按原样解析
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	if strings.ContainsRune(s, 'E') {
		if d, err := decimal.NewFromString(s); err == nil {
			return d, nil
		}
	}
	invalid := fmt.Errorf("invalid amount %q", raw)

	negative := false
	switch {
	case strings.HasSuffix(s, "DR"):
		negative = true
		s = strings.TrimSuffix(s, "DR")
	case strings.HasSuffix(s, "CR"):
		s = strings.TrimSuffix(s, "CR")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	}
	s = trimCurrencySuffix(s)

	var b strings.Builder
	var prefix []rune
	started, ended := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			if ended {
				return decimal.Zero, invalid
			}
			started = true
			b.WriteRune(r)
		case unicode.IsSpace(r):
			// 空格可作千分位
		case r == '-' || r == '+':
			if started {
				return decimal.Zero, invalid
			}
			if r == '-' {
				negative = !negative
			}
		case unicode.IsLetter(r):
			// 仅允许数字前的币种前缀，如 AUD、A$、US$
			if started {
				return decimal.Zero, invalid
			}
			prefix = append(prefix, r)
			if len(prefix) > 3 {
				return decimal.Zero, invalid
			}
		case unicode.Is(unicode.Sc, r):
			if started {
				ended = true
			}
		default:
			return decimal.Zero, invalid
		}
	}
	num := normalizeSeparators(b.String())
	if num == "" {
		return decimal.Zero, invalid
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, invalid
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// trimCurrencySuffix 去掉结尾的 ISO 币种代码，如 "12.50 AUD"
func trimCurrencySuffix(s string) string {
	if len(s) <= 3 {
		return s
	}
	code := s[len(s)-3:]
	if _, ok := validCurrency(code); !ok {
		return s
	}
	rest := s[:len(s)-3]
	if last := rest[len(rest)-1]; last != ' ' && (last < '0' || last > '9') {
		return s
	}
	return strings.TrimSpace(rest)
}

// normalizeSeparators 识别小数逗号（1.234,56 或 12,34），其余逗号视为千分位
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma < 0:
		return s
	case lastDot > lastComma:
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		return strings.Replace(s, ",", ".", 1)
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// typeFromColumn 类型列取值到交易类型，无法识别时返回空
func typeFromColumn(v string) models.TransactionType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "income", "credit", "cr", "deposit", "in":
		return models.TransactionIncome
	case "expense", "debit", "dr", "withdrawal", "payment", "out":
		return models.TransactionExpense
	}
	return ""
}
