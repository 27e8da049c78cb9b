package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelez/signaldesk/internal/config"
	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/settle"
	"github.com/avelez/signaldesk/internal/storage"
)

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) NotifySignal(symbol string, signal *storage.Signal) {
	emoji := "🟢"
	if signal.SignalType == storage.SignalSell {
		emoji = "🔴"
	}
	msg := fmt.Sprintf("%s *%s* %s (%s)\nEntry: %g\nSL: %g\nTP: %g\nConfidence: %d%%",
		emoji, signal.SignalType, symbol, signal.Timeframe,
		signal.EntryPrice, signal.StopLoss, signal.TakeProfit, signal.Confidence)
	n.send(msg)
}

func (n *Notifier) NotifyClose(symbol string, signal *storage.Signal, outcome *settle.Outcome) {
	emoji := "💰"
	label := "TAKE PROFIT"
	if outcome.Status == storage.StatusStopLoss {
		emoji = "🛑"
		label = "STOP LOSS"
		if outcome.Expired {
			label = "EXPIRED"
		}
	}
	msg := fmt.Sprintf("%s *%s* %s %s\nEntry: %g\nResult: %+.2f%%",
		emoji, label, signal.SignalType, symbol, signal.EntryPrice, outcome.ProfitPercent)
	n.send(msg)
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err)
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
