package usecase

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financeflow/internal/domain/model"
	"financeflow/internal/infra/metrics"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, time.RFC3339, time.RFC3339Nano, "02/01/2006", "2006/01/02"}

// Labels the model tends to answer with when the message is in Vietnamese.
var paymentLabels = map[string]model.PaymentMethod{
	"tiền mặt":     model.PayCash,
	"thẻ tín dụng": model.PayCreditCard,
	"chuyển khoản": model.PayBankTransfer,
	"ví điện tử":   model.PayEWallet,
	"khác":         model.PayOther,
}

var unknownAccounts = map[string]bool{
	"không xác định": true,
	"unknown":        true,
}

var enumReplacer = strings.NewReplacer(" ", "_", "-", "_")

// FindJSONArray returns the text from the first '[' to the last ']' of raw,
// after dropping Markdown code fences.
func FindJSONArray(raw string) (string, bool) {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// NormalizeTransaction turns one loosely-typed model element into a valid
// transaction. It reports false when the element has no usable amount.
// Running it on the JSON form of its own output yields the same value.
func NormalizeTransaction(raw map[string]any, today time.Time) (model.ExtractedTransaction, bool) {
	amount, ok := parseAmount(raw["amount"])
	if !ok {
		return model.ExtractedTransaction{}, false
	}

	t := model.ExtractedTransaction{
		Type:          normalizeType(str(raw["type"])),
		Amount:        amount.Abs(),
		Category:      str(raw["category"]),
		Counterparty:  str(raw["counterparty"]),
		Account:       str(raw["account"]),
		PaymentMethod: normalizePayment(str(raw["payment_method"])),
		Date:          parseDate(str(raw["date"]), today),
		Summary:       str(raw["summary"]),
	}
	if t.Category == "" || strings.EqualFold(t.Category, "khác") {
		t.Category = model.DefaultCategory
	}
	if t.Account == "" || unknownAccounts[strings.ToLower(t.Account)] {
		t.Account = model.DefaultAccount
	}
	t.Purpose = str(raw["purpose"])
	if t.Purpose == "" {
		t.Purpose = t.Summary
	}
	if t.Purpose == "" {
		t.Purpose = model.DefaultPurpose
	}
	return t, true
}

// ValidateTransactions normalizes every element and drops the unusable ones.
func ValidateTransactions(items []map[string]any, today time.Time) ([]model.ExtractedTransaction, int) {
	out := make([]model.ExtractedTransaction, 0, len(items))
	dropped := 0
	for _, it := range items {
		t, ok := NormalizeTransaction(it, today)
		if !ok {
			dropped++
			continue
		}
		out = append(out, t)
	}
	metrics.AddExtractionDropped(dropped)
	return out, dropped
}

func parseAmount(v any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case string:
		s := strings.TrimSpace(x)
		s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
		if s == "" {
			return decimal.Zero, false
		}
		d, err = decimal.NewFromString(s)
	default:
		return decimal.Zero, false
	}
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

func normalizeType(s string) model.TransactionType {
	t := model.TransactionType(enumReplacer.Replace(strings.ToLower(s)))
	if t.Valid() {
		return t
	}
	return model.TxExpense
}

func normalizePayment(s string) model.PaymentMethod {
	key := strings.ToLower(s)
	if p, ok := paymentLabels[key]; ok {
		return p
	}
	p := model.PaymentMethod(enumReplacer.Replace(key))
	if p.Valid() {
		return p
	}
	return model.PayCash
}

func parseDate(s string, today time.Time) time.Time {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return dateOnly(d)
		}
	}
	return dateOnly(today)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
