package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mohammad-safakhou/daybrief/internal/auth"
)

const (
	mailMaxResults = 20
	mailSnippetMax = 150
)

// MailMessage is one primary-inbox message received today.
type MailMessage struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// MailCollector reads today's primary-category messages.
type MailCollector struct {
	broker  *auth.Broker
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
	opts    []option.ClientOption
}

func NewMailCollector(broker *auth.Broker, timeout time.Duration, logger *log.Logger, opts ...option.ClientOption) *MailCollector {
	return &MailCollector{broker: broker, timeout: timeout, logger: logger, now: time.Now, opts: opts}
}

func (c *MailCollector) Name() string { return NameMail }

func (c *MailCollector) Fetch(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tok, err := c.broker.Acquire(ctx)
	if err != nil {
		return Failuref(NameMail, "auth: %v", err)
	}

	svc, err := gmail.NewService(ctx, c.clientOptions(tok)...)
	if err != nil {
		return Failuref(NameMail, "creating gmail service: %v", err)
	}

	now := c.now()
	query := fmt.Sprintf("after:%s before:%s category:primary",
		now.Format("2006/01/02"), now.AddDate(0, 0, 1).Format("2006/01/02"))

	list, err := svc.Users.Messages.List("me").Q(query).MaxResults(mailMaxResults).Context(ctx).Do()
	if err != nil {
		return Failuref(NameMail, "listing messages: %v", err)
	}
	if len(list.Messages) == 0 {
		return Empty(NameMail, "no messages")
	}

	var messages []MailMessage
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").MetadataHeaders("From", "Subject").Context(ctx).Do()
		if err != nil {
			return Failuref(NameMail, "reading message %s: %v", ref.Id, err)
		}
		item := MailMessage{
			Sender:  "(unknown)",
			Subject: "(no subject)",
			Snippet: truncate(msg.Snippet, mailSnippetMax),
		}
		if msg.Payload != nil {
			for _, h := range msg.Payload.Headers {
				switch h.Name {
				case "From":
					item.Sender = h.Value
				case "Subject":
					item.Subject = h.Value
				}
			}
		}
		messages = append(messages, item)
	}

	c.logger.Printf("[MAIL] %d messages today", len(messages))
	return Success(NameMail, messages)
}

func (c *MailCollector) clientOptions(tok *oauth2.Token) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(tok))}
	return append(opts, c.opts...)
}
