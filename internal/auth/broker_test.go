package auth

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/mohammad-safakhou/daybrief/config"
)

type memStore struct {
	mu    sync.Mutex
	tok   *oauth2.Token
	saves int
}

func (s *memStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, nil
}

func (s *memStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
	s.saves++
	return nil
}

type stubRefresher struct {
	calls int32
	tok   *oauth2.Token
	err   error
	delay time.Duration
}

func (r *stubRefresher) Refresh(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.tok, r.err
}

type stubAuthorizer struct {
	calls int32
	tok   *oauth2.Token
	err   error
}

func (a *stubAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	atomic.AddInt32(&a.calls, 1)
	return a.tok, a.err
}

func writeClientConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	data := `{"installed":{"client_id":"id","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("writing credentials file: %v", err)
	}
	return path
}

func testBroker(t *testing.T, store TokenStore, refresher Refresher, authorizer InteractiveAuthorizer, credsFile string) *Broker {
	t.Helper()
	cfg := config.GoogleConfig{
		CredentialsFile: credsFile,
		TokenFile:       filepath.Join(t.TempDir(), "token.json"),
		Scopes:          []string{"scope"},
	}
	logger := log.New(os.Stdout, "", 0)
	return NewBroker(cfg, logger,
		WithTokenStore(store),
		WithRefresher(refresher),
		WithAuthorizer(authorizer),
	)
}

func TestAcquireReturnsValidPersistedToken(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{AccessToken: "live", Expiry: time.Now().Add(time.Hour)}}
	refresher := &stubRefresher{}
	authorizer := &stubAuthorizer{}
	b := testBroker(t, store, refresher, authorizer, writeClientConfig(t))

	tok, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.AccessToken != "live" {
		t.Fatalf("expected persisted token, got %q", tok.AccessToken)
	}
	if atomic.LoadInt32(&refresher.calls) != 0 || atomic.LoadInt32(&authorizer.calls) != 0 {
		t.Fatalf("valid token must not trigger refresh or interactive flow")
	}
}

func TestAcquireRefreshesExpiredToken(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	refresher := &stubRefresher{tok: &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}}
	authorizer := &stubAuthorizer{}
	b := testBroker(t, store, refresher, authorizer, writeClientConfig(t))

	tok, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.AccessToken != "fresh" {
		t.Fatalf("expected refreshed token, got %q", tok.AccessToken)
	}
	if tok.RefreshToken != "refresh" {
		t.Fatalf("refresh token must be carried over, got %q", tok.RefreshToken)
	}
	if store.saves != 1 {
		t.Fatalf("expected refreshed token persisted once, got %d saves", store.saves)
	}
	if atomic.LoadInt32(&authorizer.calls) != 0 {
		t.Fatalf("successful refresh must not trigger interactive flow")
	}
}

func TestAcquireFallsBackToInteractiveWhenRefreshFails(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	refresher := &stubRefresher{err: errors.New("invalid_grant")}
	authorizer := &stubAuthorizer{tok: &oauth2.Token{AccessToken: "interactive", Expiry: time.Now().Add(time.Hour)}}
	b := testBroker(t, store, refresher, authorizer, writeClientConfig(t))

	tok, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.AccessToken == "stale" {
		t.Fatalf("stale token must not be returned after failed refresh")
	}
	if tok.AccessToken != "interactive" {
		t.Fatalf("expected interactive token, got %q", tok.AccessToken)
	}
	if atomic.LoadInt32(&refresher.calls) != 1 {
		t.Fatalf("refresh must be attempted exactly once, got %d", refresher.calls)
	}
	if atomic.LoadInt32(&authorizer.calls) != 1 {
		t.Fatalf("interactive flow must run exactly once, got %d", authorizer.calls)
	}
}

func TestAcquireMissingClientConfig(t *testing.T) {
	store := &memStore{}
	refresher := &stubRefresher{}
	authorizer := &stubAuthorizer{}
	b := testBroker(t, store, refresher, authorizer, filepath.Join(t.TempDir(), "missing.json"))

	_, err := b.Acquire(context.Background())
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected Failure, got %v", err)
	}
	if failure.Reason != ReasonMissingClientConfig {
		t.Fatalf("expected %s, got %s", ReasonMissingClientConfig, failure.Reason)
	}
	if atomic.LoadInt32(&authorizer.calls) != 0 {
		t.Fatalf("missing client config must not start the interactive flow")
	}
}

func TestAcquireFlowDenied(t *testing.T) {
	store := &memStore{}
	refresher := &stubRefresher{}
	authorizer := &stubAuthorizer{err: errors.New("user closed the consent screen")}
	b := testBroker(t, store, refresher, authorizer, writeClientConfig(t))

	_, err := b.Acquire(context.Background())
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected Failure, got %v", err)
	}
	if failure.Reason != ReasonFlowDenied {
		t.Fatalf("expected %s, got %s", ReasonFlowDenied, failure.Reason)
	}
}

func TestAcquireSingleFlight(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	refresher := &stubRefresher{
		tok:   &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)},
		delay: 50 * time.Millisecond,
	}
	authorizer := &stubAuthorizer{}
	b := testBroker(t, store, refresher, authorizer, writeClientConfig(t))

	const n = 8
	tokens := make([]*oauth2.Token, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = b.Acquire(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Acquire %d: %v", i, errs[i])
		}
		if tokens[i].AccessToken != "fresh" {
			t.Fatalf("Acquire %d: expected shared refreshed token, got %q", i, tokens[i].AccessToken)
		}
	}
	if got := atomic.LoadInt32(&refresher.calls); got != 1 {
		t.Fatalf("expected a single refresh across %d concurrent calls, got %d", n, got)
	}
}

func TestAcquireCancelledCallerDoesNotPoisonFlight(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	refresher := &stubRefresher{
		tok:   &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)},
		delay: 50 * time.Millisecond,
	}
	authorizer := &stubAuthorizer{}
	b := testBroker(t, store, refresher, authorizer, writeClientConfig(t))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// The cancelled caller bails out with its own context error.
	if _, err := b.Acquire(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The flight it started keeps running detached and persists the token.
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		done := store.tok != nil && store.tok.AccessToken == "fresh"
		store.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("detached flight never completed the refresh")
		}
		time.Sleep(5 * time.Millisecond)
	}

	tok, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after cancelled caller: %v", err)
	}
	if tok.AccessToken != "fresh" {
		t.Fatalf("expected refreshed token, got %q", tok.AccessToken)
	}
	if got := atomic.LoadInt32(&refresher.calls); got != 1 {
		t.Fatalf("refresh must run once despite the cancelled caller, got %d", got)
	}
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)

	if tok, err := store.Load(); err != nil || tok != nil {
		t.Fatalf("expected (nil, nil) for absent token, got (%v, %v)", tok, err)
	}

	want := &oauth2.Token{
		AccessToken:  "abc",
		RefreshToken: "def",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
