package auth

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/mohammad-safakhou/daybrief/config"
)

// Reason classifies credential acquisition failures.
type Reason string

const (
	ReasonMissingClientConfig Reason = "missing-client-config"
	ReasonFlowDenied          Reason = "interactive-flow-denied"
)

// Failure is returned when no valid credential can be produced. Collectors
// fold it into their own Failure result; it never aborts the pipeline.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("auth failure (%s): %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("auth failure (%s)", f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Refresher exchanges a refresh token for a fresh access token.
type Refresher interface {
	Refresh(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error)
}

// InteractiveAuthorizer runs the host-bound authorization flow. It is an
// injected collaborator so the broker's state machine is testable without a
// browser or callback listener.
type InteractiveAuthorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// Broker manages the OAuth credential lifecycle for the Google identity
// provider shared by the mail, calendar and tasks collectors.
type Broker struct {
	cfg        config.GoogleConfig
	logger     *log.Logger
	store      TokenStore
	refresher  Refresher
	authorizer InteractiveAuthorizer

	group singleflight.Group
}

// acquireTimeout bounds one shared acquisition, including the wait for the
// user to approve the interactive flow.
const acquireTimeout = 5 * time.Minute

// Option customizes a Broker, mainly for tests.
type Option func(*Broker)

func WithTokenStore(store TokenStore) Option {
	return func(b *Broker) { b.store = store }
}

func WithRefresher(r Refresher) Option {
	return func(b *Broker) { b.refresher = r }
}

func WithAuthorizer(a InteractiveAuthorizer) Option {
	return func(b *Broker) { b.authorizer = a }
}

// NewBroker creates a credential broker backed by the configured token store.
func NewBroker(cfg config.GoogleConfig, logger *log.Logger, opts ...Option) *Broker {
	b := &Broker{
		cfg:        cfg,
		logger:     logger,
		store:      NewFileTokenStore(cfg.TokenFile),
		refresher:  &tokenSourceRefresher{},
		authorizer: &LocalCallbackFlow{Logger: logger},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Acquire returns a valid credential, refreshing or re-authorizing as
// needed. Concurrent callers are collapsed into a single in-flight
// acquisition so the refresh and the interactive flow run at most once.
// The flight runs on a detached context with its own deadline: one caller
// cancelling must not fail the acquisition for its peers, and each caller
// still honors its own context while waiting.
func (b *Broker) Acquire(ctx context.Context) (*oauth2.Token, error) {
	ch := b.group.DoChan("google", func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), acquireTimeout)
		defer cancel()
		return b.acquire(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Broker) acquire(ctx context.Context) (*oauth2.Token, error) {
	tok, err := b.store.Load()
	if err != nil {
		b.logger.Printf("[AUTH] token store unreadable, treating as absent: %v", err)
		tok = nil
	}

	if tok != nil && tok.Valid() {
		return tok, nil
	}

	conf, err := b.clientConfig()
	if err != nil {
		return nil, err
	}

	if tok != nil && tok.RefreshToken != "" {
		refreshed, err := b.refresher.Refresh(ctx, conf, tok)
		if err != nil {
			// Refresh failures are not retried: discard the stale
			// credential and fall through to re-authentication.
			b.logger.Printf("[AUTH] token refresh failed, re-authenticating: %v", err)
		} else {
			if refreshed.RefreshToken == "" {
				refreshed.RefreshToken = tok.RefreshToken
			}
			b.persist(refreshed)
			b.logger.Printf("[AUTH] token refreshed")
			return refreshed, nil
		}
	}

	tok, err = b.authorizer.Authorize(ctx, conf)
	if err != nil {
		return nil, &Failure{Reason: ReasonFlowDenied, Err: err}
	}
	b.persist(tok)
	b.logger.Printf("[AUTH] interactive authorization complete")
	return tok, nil
}

func (b *Broker) clientConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(b.cfg.CredentialsFile)
	if err != nil {
		return nil, &Failure{Reason: ReasonMissingClientConfig, Err: err}
	}
	conf, err := google.ConfigFromJSON(data, b.cfg.Scopes...)
	if err != nil {
		return nil, &Failure{Reason: ReasonMissingClientConfig, Err: err}
	}
	return conf, nil
}

// persist writes the token after it is confirmed valid. A write failure is
// logged, not returned: the in-memory credential is still usable this run.
func (b *Broker) persist(tok *oauth2.Token) {
	if err := b.store.Save(tok); err != nil {
		b.logger.Printf("[AUTH] warn: persisting token failed: %v", err)
	}
}

type tokenSourceRefresher struct{}

func (tokenSourceRefresher) Refresh(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error) {
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	return src.Token()
}
