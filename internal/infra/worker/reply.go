package worker

import (
	"html"

	"github.com/shopspring/decimal"

	"financeflow/internal/domain/model"
	"financeflow/internal/infra/i18n"
)

var (
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

// FormatCurrency renders a VND amount the way chat replies show it:
// 1.5M VND, 45k VND, 500 VND.
func FormatCurrency(amount decimal.Decimal) string {
	switch {
	case amount.GreaterThanOrEqual(million):
		return amount.Div(million).StringFixed(1) + "M VND"
	case amount.GreaterThanOrEqual(thousand):
		return amount.Div(thousand).StringFixed(0) + "k VND"
	}
	return amount.StringFixed(0) + " VND"
}

var typeEmoji = map[model.TransactionType]string{
	model.TxIncome:      "💰",
	model.TxExpense:     "💸",
	model.TxTransfer:    "🔄",
	model.TxInvestment:  "📈",
	model.TxDebtPayment: "💳",
	model.TxDebtCharge:  "⚠️",
}

func TypeEmoji(t model.TransactionType) string {
	if e, ok := typeEmoji[t]; ok {
		return e
	}
	return "💰"
}

// SummaryText builds the success reply for the saved transactions.
// Replies are sent as HTML, so model-derived labels are escaped.
func SummaryText(tr *i18n.Translator, saved []*model.StoredTransaction) string {
	if len(saved) == 1 {
		t := saved[0]
		return tr.T(i18n.KeySummarySingle,
			TypeEmoji(t.Type),
			FormatCurrency(t.Amount),
			html.EscapeString(t.Description),
			html.EscapeString(t.Category),
			html.EscapeString(t.AccountName),
		)
	}
	total := decimal.Zero
	for _, t := range saved {
		if t.Type == model.TxExpense {
			total = total.Add(t.Amount)
		} else {
			total = total.Sub(t.Amount)
		}
	}
	return tr.T(i18n.KeySummaryMulti, len(saved), FormatCurrency(total.Abs()))
}
