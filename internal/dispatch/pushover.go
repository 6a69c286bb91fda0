package dispatch

import (
	"context"
	"log"

	"github.com/gregdel/pushover"

	"github.com/mohammad-safakhou/daybrief/config"
)

const pushoverTitle = "Daily Briefing"

// Pushover delivers the report as a push notification. Honors dry-run.
type Pushover struct {
	cfg    config.PushoverConfig
	dryRun bool
	logger *log.Logger
}

func NewPushover(cfg config.PushoverConfig, dryRun bool, logger *log.Logger) *Pushover {
	return &Pushover{cfg: cfg, dryRun: dryRun, logger: logger}
}

func (p *Pushover) Name() string { return "pushover" }

func (p *Pushover) Deliver(ctx context.Context, report string) Outcome {
	if p.dryRun {
		p.logger.Printf("[DISPATCH] pushover simulated (dry run)")
		return simulated(p.Name())
	}
	if p.cfg.UserKey == "" || p.cfg.AppToken == "" {
		return failed(p.Name(), "missing credentials")
	}

	app := pushover.New(p.cfg.AppToken)
	recipient := pushover.NewRecipient(p.cfg.UserKey)
	message := pushover.NewMessageWithTitle(truncate(report, pushover.MessageMaxLength), pushoverTitle)

	if _, err := app.SendMessage(message, recipient); err != nil {
		return failed(p.Name(), "sending notification: "+err.Error())
	}

	p.logger.Printf("[DISPATCH] pushover notification sent")
	return delivered(p.Name(), "notification sent")
}
