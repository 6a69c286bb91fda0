package dispatch

import (
	"context"
	"log"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mohammad-safakhou/daybrief/config"
)

// Telegram delivers the report as a Markdown bot message.
//
// Note: this channel sends live even under dry-run, matching the behavior
// of the deployed assistant. Flagged for product clarification.
type Telegram struct {
	cfg    config.TelegramConfig
	logger *log.Logger
	opts   []bot.Option
}

func NewTelegram(cfg config.TelegramConfig, logger *log.Logger, opts ...bot.Option) *Telegram {
	return &Telegram{cfg: cfg, logger: logger, opts: opts}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, report string) Outcome {
	if t.cfg.Token == "" || t.cfg.ChatID == "" {
		return failed(t.Name(), "missing credentials")
	}

	opts := append([]bot.Option{bot.WithSkipGetMe()}, t.opts...)
	b, err := bot.New(t.cfg.Token, opts...)
	if err != nil {
		return failed(t.Name(), "creating bot: "+err.Error())
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.cfg.ChatID,
		Text:      report,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return failed(t.Name(), "sending message: "+err.Error())
	}

	t.logger.Printf("[DISPATCH] telegram message sent")
	return delivered(t.Name(), "message sent")
}
