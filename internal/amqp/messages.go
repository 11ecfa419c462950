package amqp

import (
	"encoding/json"
	"time"

	"pocket-survival/internal/models"

	"github.com/shopspring/decimal"
)

// Event types, also used as routing keys.
const (
	EventExpenseLogged = "expense.logged"
	EventExpensesReset = "expenses.reset"
)

// Event is the JSON body of every published message.
type Event struct {
	Type       string           `json:"type"`
	Owner      string           `json:"owner"`
	ExpenseID  string           `json:"expense_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewExpenseLoggedEvent describes a freshly inserted expense.
func NewExpenseLoggedEvent(e models.Expense) Event {
	amount := e.Amount
	return Event{
		Type:       EventExpenseLogged,
		Owner:      e.Owner,
		ExpenseID:  e.ID,
		Amount:     &amount,
		OccurredAt: e.OccurredAt,
	}
}

// NewResetEvent describes a wipe of the owner's ledger at the given time.
func NewResetEvent(owner string, at time.Time) Event {
	return Event{Type: EventExpensesReset, Owner: owner, OccurredAt: at.UTC()}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes a message body.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
