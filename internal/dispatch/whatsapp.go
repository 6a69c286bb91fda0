package dispatch

import (
	"context"
	"log"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/mohammad-safakhou/daybrief/config"
)

// whatsappBodyMax is the transport's message body limit.
const whatsappBodyMax = 1500

// WhatsApp delivers the report as a WhatsApp text via Twilio. Honors
// dry-run.
type WhatsApp struct {
	cfg    config.WhatsAppConfig
	dryRun bool
	logger *log.Logger
}

func NewWhatsApp(cfg config.WhatsAppConfig, dryRun bool, logger *log.Logger) *WhatsApp {
	return &WhatsApp{cfg: cfg, dryRun: dryRun, logger: logger}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Deliver(ctx context.Context, report string) Outcome {
	if w.dryRun {
		w.logger.Printf("[DISPATCH] whatsapp simulated (dry run)")
		return simulated(w.Name())
	}
	if w.cfg.AccountSID == "" || w.cfg.AuthToken == "" || w.cfg.FromNumber == "" || w.cfg.ToNumber == "" {
		return failed(w.Name(), "missing credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: w.cfg.AccountSID,
		Password: w.cfg.AuthToken,
	})

	params := &openapi.CreateMessageParams{}
	params.SetBody(truncate(report, whatsappBodyMax))
	params.SetFrom(normalizeWhatsAppNumber(w.cfg.FromNumber))
	params.SetTo(normalizeWhatsAppNumber(w.cfg.ToNumber))

	msg, err := client.Api.CreateMessage(params)
	if err != nil {
		return failed(w.Name(), "sending message: "+err.Error())
	}

	detail := "message sent"
	if msg.Sid != nil {
		detail = "message sent, sid " + *msg.Sid
	}
	w.logger.Printf("[DISPATCH] whatsapp %s", detail)
	return delivered(w.Name(), detail)
}

// normalizeWhatsAppNumber ensures the channel prefix the transport requires.
func normalizeWhatsAppNumber(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
