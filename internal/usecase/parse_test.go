//go:build !integration

package usecase

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financeflow/internal/domain/model"
)

func TestFindJSONArray(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"clean", `[{"amount":1}]`, `[{"amount":1}]`, true},
		{"prose wrapper", "Here you go:\n[{\"amount\":1}]\nHope it helps", `[{"amount":1}]`, true},
		{"fenced", "```json\n[{\"amount\":1}]\n```", "[{\"amount\":1}]", true},
		{"nested arrays", `x [[1],[2]] y`, `[[1],[2]]`, true},
		{"absent", "I could not find any transactions.", "", false},
		{"reversed brackets", "] nothing [", "", false},
		{"empty array", "[]", "[]", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := FindJSONArray(c.raw)
			if ok != c.wantOK || strings.TrimSpace(got) != c.want {
				t.Fatalf("FindJSONArray(%q) = %q, %v; want %q, %v", c.raw, got, ok, c.want, c.wantOK)
			}
		})
	}
}

func TestNormalizeTransaction_LiteralDefaults(t *testing.T) {
	got, ok := NormalizeTransaction(map[string]any{"amount": "50000", "type": "bogus"}, fixedNow)
	if !ok {
		t.Fatal("expected element to be kept")
	}
	if !got.Amount.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("amount = %s, want 50000", got.Amount)
	}
	if got.Type != model.TxExpense {
		t.Errorf("type = %q, want expense", got.Type)
	}
	if got.Category != "other" || got.Account != "unspecified" || got.PaymentMethod != model.PayCash {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if got.Purpose != "financial transaction" {
		t.Errorf("purpose = %q", got.Purpose)
	}
	if want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("date = %v, want %v", got.Date, want)
	}
}

func TestNormalizeTransaction_RejectsUnusableAmounts(t *testing.T) {
	for _, amount := range []any{nil, "", "abc", "45k", true, map[string]any{}, 0.0, "0"} {
		if _, ok := NormalizeTransaction(map[string]any{"amount": amount}, fixedNow); ok {
			t.Errorf("amount %#v should be rejected", amount)
		}
	}
}

func TestNormalizeTransaction_AmountIsAlwaysPositive(t *testing.T) {
	inputs := []any{-45000.0, json.Number("-12.5"), "-300", "1,500,000", 7, json.Number("1e3")}
	for _, in := range inputs {
		got, ok := NormalizeTransaction(map[string]any{"amount": in}, fixedNow)
		if !ok {
			t.Fatalf("amount %#v should be kept", in)
		}
		if !got.Amount.IsPositive() {
			t.Errorf("amount %#v normalized to %s", in, got.Amount)
		}
	}
}

func TestNormalizeTransaction_Fields(t *testing.T) {
	got, ok := NormalizeTransaction(map[string]any{
		"type":           "Income",
		"amount":         json.Number("15000000"),
		"category":       "salary",
		"summary":        "monthly salary",
		"counterparty":   "ACME",
		"account":        "Vietcombank",
		"payment_method": "chuyển khoản",
		"date":           "01/03/2026",
	}, fixedNow)
	if !ok {
		t.Fatal("expected element to be kept")
	}
	if got.Type != model.TxIncome || got.PaymentMethod != model.PayBankTransfer {
		t.Errorf("enum mapping wrong: %+v", got)
	}
	if got.Purpose != "monthly salary" {
		t.Errorf("purpose should fall back to summary, got %q", got.Purpose)
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("date = %v, want %v", got.Date, want)
	}
	if got.Account != "Vietcombank" || got.Counterparty != "ACME" {
		t.Errorf("labels lost: %+v", got)
	}

	unknown, _ := NormalizeTransaction(map[string]any{"amount": 1.0, "account": "Không xác định", "category": "Khác", "date": "not a date"}, fixedNow)
	if unknown.Account != model.DefaultAccount || unknown.Category != model.DefaultCategory {
		t.Errorf("unknown labels should map to defaults: %+v", unknown)
	}
	if !unknown.Date.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unparsable date should become today, got %v", unknown.Date)
	}
}

func TestNormalizeTransaction_Idempotent(t *testing.T) {
	inputs := []map[string]any{
		{"amount": "50000", "type": "bogus"},
		{"amount": -45000.0, "type": "expense", "category": "drinks", "purpose": "coffee", "account": "cash", "payment_method": "e-wallet", "date": "2026-03-01"},
		{"amount": json.Number("1.5"), "type": "debt_charge", "counterparty": "Bank", "summary": "fee", "date": "2026-02-28T23:00:00Z"},
	}
	for i, in := range inputs {
		first, ok := NormalizeTransaction(in, fixedNow)
		if !ok {
			t.Fatalf("case %d: rejected", i)
		}
		b, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("case %d: marshal: %v", i, err)
		}
		var again map[string]any
		if err := json.Unmarshal(b, &again); err != nil {
			t.Fatalf("case %d: unmarshal: %v", i, err)
		}
		second, ok := NormalizeTransaction(again, fixedNow.Add(72*time.Hour))
		if !ok {
			t.Fatalf("case %d: re-validation rejected %s", i, b)
		}
		if !second.Amount.Equal(first.Amount) || !second.Date.Equal(first.Date) {
			t.Fatalf("case %d: amount/date changed: %+v vs %+v", i, first, second)
		}
		second.Amount, second.Date = first.Amount, first.Date
		if second != first {
			t.Fatalf("case %d: re-validation changed the value:\n%+v\n%+v", i, first, second)
		}
	}
}

func TestValidateTransactions_PaymentMethodCoercion(t *testing.T) {
	methods := []string{"cash", "cheque", "credit_card", "", "bitcoin", "e_wallet", "other", "bank_transfer"}
	items := make([]map[string]any, len(methods))
	for i, m := range methods {
		items[i] = map[string]any{"amount": float64(i + 1), "payment_method": m}
	}

	got, dropped := ValidateTransactions(items, fixedNow)
	if dropped != 0 || len(got) != len(methods) {
		t.Fatalf("expected all %d kept, got %d (dropped %d)", len(methods), len(got), dropped)
	}
	for i, m := range methods {
		want := model.PaymentMethod(m)
		if !want.Valid() {
			want = model.PayCash
		}
		if got[i].PaymentMethod != want {
			t.Errorf("item %d: payment method %q -> %q, want %q", i, m, got[i].PaymentMethod, want)
		}
	}
}

func TestValidateTransactions_DropsOnlyBadElements(t *testing.T) {
	items := []map[string]any{
		{"amount": 10.0},
		{"amount": "nope"},
		{"type": "income"},
		{"amount": "20"},
	}
	got, dropped := ValidateTransactions(items, fixedNow)
	if dropped != 2 || len(got) != 2 {
		t.Fatalf("expected 2 kept and 2 dropped, got %d kept %d dropped", len(got), dropped)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(`Paid 45000 for "coffee"`, fixedNow)
	for _, want := range []string{"debt_charge", "e_wallet", "credit_card", "2026-03-15", "unspecified", `"Paid 45000 for \"coffee\""`, "JSON array"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
