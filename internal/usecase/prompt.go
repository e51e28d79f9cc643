package usecase

import (
	"fmt"
	"strings"
	"time"

	"financeflow/internal/domain/model"
)

const extractionPrompt = `Analyze the message below and extract every financial transaction it describes.
For each transaction return an object with these fields:

- type: one of [%s]
- amount: the amount as a plain number, without currency symbols
- category: one of [%s]
- purpose: a short description of what the money was for (e.g. "pay rent", "buy lunch", "move money to savings")
- counterparty: the person or organisation involved, if any
- account: the account or card used (e.g. "Vietcombank", "BIDV Credit Card", "cash")
- payment_method: one of [%s]
- date: YYYY-MM-DD; use %s when the message gives no date
- summary: a one-line summary of the transaction

Rules:
- Only extract real financial transactions; ignore unrelated chatter.
- amount is always positive.
- Use "%s" when the category is unclear and "%s" when the account is unclear.
- Messages may be in Vietnamese or English.
- Recognise amounts in many formats (42$, $42, 42 USD, 42k, 1.5M, 1tr) and expand them to the full number.

Reply with a JSON array of objects only, one object per transaction.
If there are no transactions, reply with an empty array [].

Message: %q`

// BuildPrompt embeds message into the extraction template.
func BuildPrompt(message string, today time.Time) string {
	types := make([]string, len(model.TransactionTypes))
	for i, t := range model.TransactionTypes {
		types[i] = string(t)
	}
	methods := make([]string, len(model.PaymentMethods))
	for i, m := range model.PaymentMethods {
		methods[i] = string(m)
	}
	return fmt.Sprintf(extractionPrompt,
		strings.Join(types, ", "),
		strings.Join(model.Categories, ", "),
		strings.Join(methods, ", "),
		today.UTC().Format(dateLayout),
		model.DefaultCategory,
		model.DefaultAccount,
		message,
	)
}
