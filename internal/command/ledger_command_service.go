package command

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
)

// EventPublisher appends a domain event to the account events stream.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// LedgerCommandService runs ledger mutations and announces every successful
// one on the account events stream.
type LedgerCommandService struct {
	ledger    ledger.Ledger
	publisher EventPublisher
	logger    log.Logger
}

// NewLedgerCommandService creates the command service. publisher may be nil,
// in which case no events are emitted.
func NewLedgerCommandService(l ledger.Ledger, publisher EventPublisher, logger log.Logger) *LedgerCommandService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &LedgerCommandService{
		ledger:    l,
		publisher: publisher,
		logger:    log.With(logger, "component", "commands"),
	}
}

func (s *LedgerCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (string, error) {
	accountNumber, err := s.ledger.CreateAccount(ctx, cmd.Name, cmd.Pin)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		AccountNumber: accountNumber,
		Name:          cmd.Name,
	})
	return accountNumber, nil
}

func (s *LedgerCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (ledger.ResponseCode, error) {
	code, err := s.ledger.Deposit(ctx, cmd.AccountNumber, cmd.Amount, cmd.Pin)
	if err != nil || !code.IsSuccess() {
		return code, err
	}
	s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountNumber: cmd.AccountNumber,
		Change:        cmd.Amount,
	})
	return code, nil
}

func (s *LedgerCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (ledger.ResponseCode, error) {
	code, err := s.ledger.Withdraw(ctx, cmd.AccountNumber, cmd.Amount, cmd.Pin)
	if err != nil || !code.IsSuccess() {
		return code, err
	}
	s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountNumber: cmd.AccountNumber,
		Change:        cmd.Amount.Neg(),
	})
	return code, nil
}

func (s *LedgerCommandService) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (ledger.ResponseCode, error) {
	code, err := s.ledger.Transfer(ctx, cmd.SourceAccountNumber, cmd.TargetAccountNumber, cmd.Amount, cmd.Pin)
	if err != nil || !code.IsSuccess() {
		return code, err
	}
	s.publish(ctx, events.TransferCompleted, events.TransferCompletedEvent{
		SourceAccountNumber: cmd.SourceAccountNumber,
		TargetAccountNumber: cmd.TargetAccountNumber,
		Amount:              cmd.Amount,
	})
	return code, nil
}

// publish logs failures; the outcome of the command is already decided.
func (s *LedgerCommandService) publish(ctx context.Context, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		_ = level.Warn(s.logger).Log("msg", "failed to publish event", "type", eventType, "err", err)
	}
}

