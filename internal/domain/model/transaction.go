package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxIncome      TransactionType = "income"
	TxExpense     TransactionType = "expense"
	TxTransfer    TransactionType = "transfer"
	TxInvestment  TransactionType = "investment"
	TxDebtPayment TransactionType = "debt_payment"
	TxDebtCharge  TransactionType = "debt_charge"
)

var TransactionTypes = []TransactionType{TxIncome, TxExpense, TxTransfer, TxInvestment, TxDebtPayment, TxDebtCharge}

func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PayCash         PaymentMethod = "cash"
	PayCreditCard   PaymentMethod = "credit_card"
	PayBankTransfer PaymentMethod = "bank_transfer"
	PayEWallet      PaymentMethod = "e_wallet"
	PayOther        PaymentMethod = "other"
)

var PaymentMethods = []PaymentMethod{PayCash, PayCreditCard, PayBankTransfer, PayEWallet, PayOther}

func (p PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if v == p {
			return true
		}
	}
	return false
}

const (
	DefaultCategory = "other"
	DefaultAccount  = "unspecified"
	DefaultPurpose  = "financial transaction"
)

// Categories is the suggested vocabulary handed to the model.
var Categories = []string{
	"rent", "food", "drinks", "fuel", "entertainment", "utilities", "shopping",
	"health", "housing", "education", "transport", "investment", "savings",
	"debt", "credit_card", "banking", "insurance", "beauty", "salary", DefaultCategory,
}

// ExtractedTransaction is one normalized transaction candidate produced from a message.
type ExtractedTransaction struct {
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Purpose       string          `json:"purpose"`
	Counterparty  string          `json:"counterparty,omitempty"`
	Account       string          `json:"account"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Date          time.Time       `json:"date"`
	Summary       string          `json:"summary"`
}

// BalanceDelta is the signed change this transaction applies to its account.
// Transfers are not applied.
func (t ExtractedTransaction) BalanceDelta() decimal.Decimal {
	switch t.Type {
	case TxIncome:
		return t.Amount
	case TxExpense, TxDebtPayment, TxDebtCharge:
		return t.Amount.Neg()
	case TxTransfer:
		return decimal.Zero
	case TxInvestment:
		return t.Amount
	}
	return decimal.Zero
}

// StoredTransaction is the persisted row.
type StoredTransaction struct {
	ID            string
	UserID        string
	Type          TransactionType
	Amount        decimal.Decimal
	Category      string
	Description   string
	Counterparty  string
	AccountName   string
	PaymentMethod PaymentMethod
	Date          time.Time
	Notes         string
	Source        Source
	RawMessage    string
	ExternalRef   string
	CreatedAt     time.Time

	// Duplicate is set when the insert hit an existing external ref.
	Duplicate bool
}

func NewStoredTransaction(id, userID string, t ExtractedTransaction, source Source, raw, ref string) *StoredTransaction {
	return &StoredTransaction{
		ID:            id,
		UserID:        userID,
		Type:          t.Type,
		Amount:        t.Amount,
		Category:      t.Category,
		Description:   t.Purpose,
		Counterparty:  t.Counterparty,
		AccountName:   t.Account,
		PaymentMethod: t.PaymentMethod,
		Date:          t.Date,
		Notes:         t.Summary,
		Source:        source,
		RawMessage:    raw,
		ExternalRef:   ref,
		CreatedAt:     time.Now().UTC(),
	}
}

// Account is the balance cache row; never authoritative.
type Account struct {
	ID       string
	UserID   string
	Name     string
	Type     string
	Balance  decimal.Decimal
	Currency string
}
