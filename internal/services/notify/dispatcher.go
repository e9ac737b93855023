package notify

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

// DefaultSendTimeout bounds each notifier.
const DefaultSendTimeout = 30 * time.Second

func userAgent() string {
	return "prism/" + common.GetVersion()
}

// Dispatcher delivers one message to every configured notifier.
type Dispatcher struct {
	notifiers []interfaces.Notifier
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(notifiers []interfaces.Notifier, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, timeout: DefaultSendTimeout, logger: logger}
}

// Len returns the number of notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Deliver sends to each notifier in turn. Failures are reported as degraded outcomes
// and never stop the remaining notifiers.
func (d *Dispatcher) Deliver(ctx context.Context, subject, message string) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := n.Send(sendCtx, subject, message)
		cancel()

		if err != nil {
			d.logger.Warn().Err(err).Str("notifier", n.Name()).Msg("Notification delivery failed")
			outcomes = append(outcomes, models.NewOutcome(models.CollaboratorNotifier, n.Name(), models.OutcomeDegraded, err))
			continue
		}

		d.logger.Info().Str("notifier", n.Name()).Int("length", len([]rune(message))).Msg("Notification delivered")
		outcomes = append(outcomes, models.NewOutcome(models.CollaboratorNotifier, n.Name(), models.OutcomeSuccess, nil))
	}
	return outcomes
}
