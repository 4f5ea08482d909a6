package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds published by the ledger engine. Consumers (reminder emails,
// notification fan-out) live outside this repository.
const (
	EventTransactionMaterialized = "transaction.materialized"
	EventBudgetRenewed           = "budget.renewed"
	EventGoalCompleted           = "goal.completed"
)

// Event is a lightweight notification about a ledger change. It carries ids
// and the amount as a decimal string; consumers fetch full rows themselves.
type Event struct {
	Kind       string    `json:"kind"`
	EntityID   uuid.UUID `json:"entity_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     string    `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(kind string, entityID, userID uuid.UUID, amount string) *Event {
	return &Event{
		Kind:       kind,
		EntityID:   entityID,
		UserID:     userID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
