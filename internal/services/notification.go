package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// NotificationService delivers human-readable alert and outcome summaries to
// a Telegram chat. Delivery is best effort: a send failure is logged and
// never propagates to event processing.
type NotificationService struct {
	bot    *bot.Bot
	chatID string
	logger *logrus.Logger
}

// NewNotificationService builds the service. With an empty token or chat id
// it degrades to a no-op that only logs.
func NewNotificationService(botToken, chatID string, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	var telegramBot *bot.Bot
	if botToken != "" {
		b, err := bot.New(botToken)
		if err != nil {
			logger.WithError(err).Warn("Telegram bot init failed; notifications disabled")
		} else {
			telegramBot = b
		}
	}
	return &NotificationService{bot: telegramBot, chatID: chatID, logger: logger}
}

// Enabled reports whether messages will actually be delivered.
func (ns *NotificationService) Enabled() bool {
	return ns.bot != nil && ns.chatID != ""
}

// Send delivers a plain-text message. Plain text on purpose: Telegram markup
// errors would drop alerts over formatting.
func (ns *NotificationService) Send(ctx context.Context, text string) error {
	if !ns.Enabled() {
		ns.logger.Debug("Telegram disabled; dropping notification")
		return nil
	}
	_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: ns.chatID,
		Text:   text,
	})
	if err != nil {
		ns.logger.WithError(err).Warn("Telegram send failed")
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// SendTest delivers the connectivity test message.
func (ns *NotificationService) SendTest(ctx context.Context) error {
	return ns.Send(ctx, "✅ Telegram test successful")
}

// NotifyResult formats and delivers the summary for one processed event,
// plus an outcome message when the event closed a labeled trade.
func (ns *NotificationService) NotifyResult(ctx context.Context, res models.ProcessResult, stats models.StatsSnapshot) {
	if msg := FormatAlert(res.Event); msg != "" {
		if err := ns.Send(ctx, msg); err != nil {
			ns.logger.WithError(err).Warn("Alert summary not delivered")
		}
	}
	if res.Label != nil {
		if err := ns.Send(ctx, FormatOutcome(res, stats)); err != nil {
			ns.logger.WithError(err).Warn("Outcome summary not delivered")
		}
	}
}

// Grade maps a score to its display band.
func Grade(score *float64) string {
	switch {
	case score == nil:
		return "N/A"
	case *score >= 80:
		return "A"
	case *score >= 65:
		return "B"
	case *score >= 50:
		return "C"
	default:
		return "SKIP"
	}
}

// FormatAlert renders the per-event summary message.
func FormatAlert(ev models.Event) string {
	var header string
	switch ev.Kind {
	case models.EventClose:
		header = "🏁 TRAIL EXIT"
	case models.EventScale:
		header = "➕ SCALE ALERT"
	case models.EventOutcome:
		header = "📌 OUTCOME ALERT"
	default:
		header = "📊 TRADE ALERT"
	}

	lines := []string{
		header,
		"",
		fmt.Sprintf("%s — %s", orNA(ev.Instrument), ev.Side),
		fmt.Sprintf("Type: %s", ev.Kind),
		fmt.Sprintf("TF: %s", orNA(ev.Timeframe)),
		fmt.Sprintf("Session: %s", ev.Session),
		"",
		fmt.Sprintf("Entry/Price: %s", fmtPrice(ev.Price)),
		fmt.Sprintf("SL: %s", fmtPrice(ev.Stop)),
		fmt.Sprintf("TP: %s", fmtPrice(ev.Target)),
	}
	if ev.Score == nil {
		lines = append(lines, "Score: N/A (N/A)")
	} else {
		lines = append(lines, fmt.Sprintf("Score: %d (%s)", int(*ev.Score), Grade(ev.Score)))
	}
	return strings.Join(lines, "\n")
}

// FormatOutcome renders the outcome-saved message with running totals and
// what the model believed before seeing this outcome.
func FormatOutcome(res models.ProcessResult, stats models.StatsSnapshot) string {
	result := string(*res.Label)
	switch *res.Label {
	case models.LabelWin:
		result = "WIN ✅"
	case models.LabelLoss:
		result = "LOSS ❌"
	case models.LabelBreakeven:
		result = "BREAKEVEN ➖"
	}

	lines := []string{
		"📌 OUTCOME SAVED",
		"",
		fmt.Sprintf("%s (%s)", orNA(res.Event.Instrument), res.Event.Side),
		fmt.Sprintf("Exit: %s", fmtPrice(res.Event.Price)),
		fmt.Sprintf("Result: %s", result),
	}
	if res.Probability != nil {
		lines = append(lines, fmt.Sprintf("Model prior: %.1f%%", *res.Probability*100))
	}
	lines = append(lines, "",
		fmt.Sprintf("Totals — Wins: %d | Losses: %d | Total: %d", stats.Wins, stats.Losses, stats.Total))
	return strings.Join(lines, "\n")
}

func fmtPrice(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.StringFixed(2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
