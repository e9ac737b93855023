package notify

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
)

// NewNotifiers returns a notifier for each enabled channel, in Telegram, ntfy, mail order.
func NewNotifiers(config *common.Config, logger arbor.ILogger) []interfaces.Notifier {
	var notifiers []interfaces.Notifier

	if config.Telegram.Enabled {
		notifiers = append(notifiers, NewTelegram(config.Telegram.BaseURL, config.Telegram.Token, config.Telegram.ChatID, logger))
	}
	if config.Ntfy.Enabled {
		notifiers = append(notifiers, NewNtfy(config.Ntfy.TopicURL, config.Ntfy.Token, logger))
	}
	if config.Mail.Enabled {
		notifiers = append(notifiers, NewMailer(config.Mail, logger))
	}

	if len(notifiers) == 0 {
		logger.Warn().Msg("No notification channel enabled; reports will only be persisted")
	}
	return notifiers
}
