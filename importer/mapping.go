package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn 映射缺少必需列或列不存在
var ErrMissingColumn = errors.New("column mapping is incomplete")

// ColumnMapping 目标字段到文件表头的映射
type ColumnMapping struct {
	Date        string `json:"date" form:"date"`
	Amount      string `json:"amount,omitempty" form:"amount"`
	Debit       string `json:"debit,omitempty" form:"debit"`
	Credit      string `json:"credit,omitempty" form:"credit"`
	Description string `json:"description,omitempty" form:"description"`
	Category    string `json:"category,omitempty" form:"category"`
	Currency    string `json:"currency,omitempty" form:"currency"`
	Type        string `json:"type,omitempty" form:"type"`
}

// headerAliases 常见银行导出表头，按优先级排列
var headerAliases = map[string][]string{
	"date":        {"date", "transaction date", "posted date", "posting date", "value date", "booking date"},
	"amount":      {"amount", "value", "transaction amount", "amount (aud)"},
	"debit":       {"debit", "debit amount", "withdrawal", "withdrawals", "paid out", "money out"},
	"credit":      {"credit", "credit amount", "deposit", "deposits", "paid in", "money in"},
	"description": {"description", "details", "narrative", "memo", "transaction details", "payee", "reference"},
	"category":    {"category"},
	"currency":    {"currency", "ccy"},
	"type":        {"type", "transaction type", "dr/cr"},
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// SuggestMapping 根据表头别名推荐映射
func SuggestMapping(headers []string) ColumnMapping {
	index := make(map[string]string, len(headers))
	for _, h := range headers {
		n := normalizeHeader(h)
		if _, ok := index[n]; !ok && n != "" {
			index[n] = h
		}
	}
	pick := func(field string) string {
		for _, alias := range headerAliases[field] {
			if h, ok := index[alias]; ok {
				return h
			}
		}
		return ""
	}

	m := ColumnMapping{
		Date:        pick("date"),
		Amount:      pick("amount"),
		Description: pick("description"),
		Category:    pick("category"),
		Currency:    pick("currency"),
		Type:        pick("type"),
	}
	if m.Amount == "" {
		m.Debit = pick("debit")
		m.Credit = pick("credit")
	}
	return m
}

// IsEmpty 未设置任何列
func (m ColumnMapping) IsEmpty() bool {
	return m == ColumnMapping{}
}

// ToMap 用于持久化到导入记录
func (m ColumnMapping) ToMap() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"date": m.Date, "amount": m.Amount, "debit": m.Debit, "credit": m.Credit,
		"description": m.Description, "category": m.Category, "currency": m.Currency, "type": m.Type,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// columns 映射解析后的列下标，-1 表示未映射
type columns struct {
	date, amount, debit, credit, description, category, currency, typ int
}

// resolve 将映射解析为列下标，表头匹配忽略大小写与多余空格
func (m ColumnMapping) resolve(headers []string) (columns, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		n := normalizeHeader(h)
		if _, ok := index[n]; !ok {
			index[n] = i
		}
	}
	var missing []string
	lookup := func(field, header string) int {
		if header == "" {
			return -1
		}
		i, ok := index[normalizeHeader(header)]
		if !ok {
			missing = append(missing, fmt.Sprintf("%s (%q)", field, header))
			return -1
		}
		return i
	}

	c := columns{
		date:        lookup("date", m.Date),
		amount:      lookup("amount", m.Amount),
		debit:       lookup("debit", m.Debit),
		credit:      lookup("credit", m.Credit),
		description: lookup("description", m.Description),
		category:    lookup("category", m.Category),
		currency:    lookup("currency", m.Currency),
		typ:         lookup("type", m.Type),
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: columns not found: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	if c.date < 0 {
		return c, fmt.Errorf("%w: a date column is required", ErrMissingColumn)
	}
	if c.amount < 0 && c.debit < 0 && c.credit < 0 {
		return c, fmt.Errorf("%w: an amount column or debit/credit columns are required", ErrMissingColumn)
	}
	return c, nil
}
