package query

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/eaglebank/ledger/shared/events"
)

// AccountRefresher rebuilds the cached view of one account from the store.
type AccountRefresher interface {
	Refresh(ctx context.Context, accountNumber string) error
}

// AccountProjector keeps the Redis read model in step with the account events
// stream. It is the Handler of the account events subscriber.
type AccountProjector struct {
	views  AccountRefresher
	logger log.Logger
}

func NewAccountProjector(views AccountRefresher, logger log.Logger) *AccountProjector {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &AccountProjector{views: views, logger: log.With(logger, "component", "projector")}
}

// HandleAccountEvent refreshes every account named by the event. Returning an
// error leaves the message unacknowledged so that it is delivered again.
func (p *AccountProjector) HandleAccountEvent(ctx context.Context, event events.Event) error {
	accountNumbers, err := events.AccountNumbers(event)
	if err != nil {
		return err
	}
	if accountNumbers == nil {
		_ = level.Debug(p.logger).Log("msg", "ignoring event", "type", event.Type)
		return nil
	}
	for _, accountNumber := range accountNumbers {
		if err := p.views.Refresh(ctx, accountNumber); err != nil {
			return err
		}
	}
	_ = level.Debug(p.logger).Log("msg", "projected event", "type", event.Type, "accounts", len(accountNumbers))
	return nil
}
