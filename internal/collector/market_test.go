package collector

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/daybrief/config"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func quoteJSON(results ...string) string {
	return fmt.Sprintf(`{"quoteResponse":{"result":[%s]}}`, strings.Join(results, ","))
}

func newsRSS(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>headlines</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>headline %d</title><link>https://example.com/%d</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestMarketCollectorSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "REP.MC" {
			t.Errorf("unexpected symbols param %q", got)
		}
		fmt.Fprint(w, quoteJSON(`{"symbol":"REP.MC","currency":"EUR","regularMarketPrice":14.2,"previousClose":14.0,"dividendYield":5.1,"internalOnly":"dropme"}`))
	})
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newsRSS(7))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewMarketCollector(config.MarketConfig{
		Symbols:       []string{"rep.mc "},
		NewsQuery:     "bolsa",
		QuoteEndpoint: srv.URL + "/quote",
		NewsEndpoint:  srv.URL + "/rss",
		MaxNews:       5,
	}, 5*time.Second, discardLogger())

	res := c.Fetch(context.Background())
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", res.Status, res.Reason)
	}
	data, ok := res.Payload.(MarketData)
	if !ok {
		t.Fatalf("unexpected payload type %T", res.Payload)
	}
	if len(data.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(data.Quotes))
	}
	if data.Quotes[0]["symbol"] != "REP.MC" {
		t.Fatalf("unexpected quote: %v", data.Quotes[0])
	}
	if _, leaked := data.Quotes[0]["internalOnly"]; leaked {
		t.Fatalf("non-whitelisted field must be dropped: %v", data.Quotes[0])
	}
	if len(data.News) != 5 {
		t.Fatalf("expected headline cap of 5, got %d", len(data.News))
	}
	if data.News[0].Source != "Google News" {
		t.Fatalf("unexpected news source %q", data.News[0].Source)
	}
}

func TestMarketCollectorMixedBatchReportsInvalidSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteJSON(
			`{"symbol":"REP.MC","currency":"EUR","regularMarketPrice":14.2}`,
			`{"symbol":"INVALID123","shortName":"bogus"}`,
		))
	}))
	defer srv.Close()

	c := NewMarketCollector(config.MarketConfig{
		Symbols:       []string{"REP.MC", "INVALID123"},
		QuoteEndpoint: srv.URL,
	}, 5*time.Second, discardLogger())

	res := c.Fetch(context.Background())
	if res.Status != StatusSuccess {
		t.Fatalf("a mixed batch must keep the valid quotes, got %s (%s)", res.Status, res.Reason)
	}
	data := res.Payload.(MarketData)
	if len(data.Quotes) != 1 || data.Quotes[0]["symbol"] != "REP.MC" {
		t.Fatalf("unexpected quotes: %v", data.Quotes)
	}
	if len(data.InvalidSymbols) != 1 || data.InvalidSymbols[0] != "INVALID123" {
		t.Fatalf("the price-less symbol must be reported, got %v", data.InvalidSymbols)
	}
}

func TestMarketCollectorInvalidTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteJSON(`{"symbol":"INVALID123","shortName":"bogus"}`))
	}))
	defer srv.Close()

	c := NewMarketCollector(config.MarketConfig{
		Symbols:       []string{"INVALID123"},
		QuoteEndpoint: srv.URL,
	}, 5*time.Second, discardLogger())

	res := c.Fetch(context.Background())
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	if !strings.Contains(res.Reason, "invalid ticker") {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestMarketCollectorNewsFailureKeepsQuotes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteJSON(`{"symbol":"REP.MC","currentPrice":14.2}`))
	})
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feed down", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewMarketCollector(config.MarketConfig{
		Symbols:       []string{"REP.MC"},
		NewsQuery:     "bolsa",
		QuoteEndpoint: srv.URL + "/quote",
		NewsEndpoint:  srv.URL + "/rss",
	}, 5*time.Second, discardLogger())

	res := c.Fetch(context.Background())
	if res.Status != StatusSuccess {
		t.Fatalf("a headline failure must not sink the quotes, got %s (%s)", res.Status, res.Reason)
	}
	data := res.Payload.(MarketData)
	if len(data.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(data.Quotes))
	}
	if data.NewsError == "" {
		t.Fatalf("expected the news error recorded in the payload")
	}
}

func TestMarketCollectorQuoteEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewMarketCollector(config.MarketConfig{
		Symbols:       []string{"REP.MC"},
		QuoteEndpoint: srv.URL,
	}, 5*time.Second, discardLogger())

	res := c.Fetch(context.Background())
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
}
