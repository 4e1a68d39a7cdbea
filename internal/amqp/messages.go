package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Record kinds and change actions carried by RecordChangedMessage.
const (
	KindExpense = "expense"
	KindIncome  = "income"
	KindBudget  = "budget"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

var (
	kinds   = []string{KindExpense, KindIncome, KindBudget}
	actions = []string{ActionCreated, ActionUpdated, ActionDeleted}

	ErrInvalidMessage = errors.New("invalid record change message")
)

// RecordChangedMessage announces that a stored record changed. It carries
// only the identity; consumers read the record itself from storage.
type RecordChangedMessage struct {
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(kind, action, id string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// RoutingKey is kind.action, e.g. "expense.created".
func (m *RecordChangedMessage) RoutingKey() string {
	return m.Kind + "." + m.Action
}

// Validate rejects messages no consumer could route or resolve.
func (m *RecordChangedMessage) Validate() error {
	switch {
	case !slices.Contains(kinds, m.Kind):
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	case !slices.Contains(actions, m.Action):
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMessage, m.Action)
	case m.ID == "":
		return fmt.Errorf("%w: missing record id", ErrInvalidMessage)
	}
	return nil
}

// Publishing wraps the JSON body in a persistent delivery. The message id is
// stable per change so consumers can drop redeliveries.
func (m *RecordChangedMessage) Publishing() (amqp091.Publishing, error) {
	body, err := m.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    fmt.Sprintf("%s.%s.%d", m.RoutingKey(), m.ID, m.Timestamp.UnixNano()),
		Type:         m.RoutingKey(),
		Timestamp:    m.Timestamp,
		Body:         body,
	}, nil
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
