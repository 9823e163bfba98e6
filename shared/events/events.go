package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	AccountCreated    = "account.created"
	BalanceUpdated    = "balance.updated"
	TransferCompleted = "transfer.completed"
)

// Stream names
const (
	AccountEventsStream = "account.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type AccountCreatedEvent struct {
	AccountNumber string `json:"accountNumber"`
	Name          string `json:"name"`
}

// BalanceUpdatedEvent is emitted after a deposit (positive change) or a
// withdrawal (negative change).
type BalanceUpdatedEvent struct {
	AccountNumber string          `json:"accountNumber"`
	Change        decimal.Decimal `json:"change"`
}

type TransferCompletedEvent struct {
	SourceAccountNumber string          `json:"sourceAccountNumber"`
	TargetAccountNumber string          `json:"targetAccountNumber"`
	Amount              decimal.Decimal `json:"amount"`
}

// DecodeData converts the loosely typed Data of a received event into out.
// Events read back from a stream carry Data as a generic map.
func DecodeData(event Event, out any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event data: %w", event.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s event data: %w", event.Type, err)
	}
	return nil
}

// AccountNumbers returns the account numbers an event refers to.
func AccountNumbers(event Event) ([]string, error) {
	switch event.Type {
	case AccountCreated:
		var data AccountCreatedEvent
		if err := DecodeData(event, &data); err != nil {
			return nil, err
		}
		return []string{data.AccountNumber}, nil
	case BalanceUpdated:
		var data BalanceUpdatedEvent
		if err := DecodeData(event, &data); err != nil {
			return nil, err
		}
		return []string{data.AccountNumber}, nil
	case TransferCompleted:
		var data TransferCompletedEvent
		if err := DecodeData(event, &data); err != nil {
			return nil, err
		}
		return []string{data.SourceAccountNumber, data.TargetAccountNumber}, nil
	default:
		return nil, nil
	}
}
