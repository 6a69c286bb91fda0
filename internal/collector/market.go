package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mohammad-safakhou/daybrief/config"
)

// quoteFields is the whitelist of financial fields projected from the quote
// response. Anything outside it is dropped.
var quoteFields = []string{
	"symbol", "shortName", "currency", "exchange",
	"currentPrice", "regularMarketPrice", "previousClose",
	"regularMarketChangePercent", "dayLow", "dayHigh",
	"fiftyTwoWeekLow", "fiftyTwoWeekHigh", "marketCap", "dividendYield",
}

// NewsItem is one syndication-feed headline.
type NewsItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Source    string `json:"source"`
}

// MarketData is the market collector payload: per-symbol quote projections
// plus recent headlines for the configured query.
type MarketData struct {
	Quotes []map[string]interface{} `json:"quotes"`
	// InvalidSymbols lists requested tickers that came back without any
	// price field, so a bad symbol in a batch is never silently dropped.
	InvalidSymbols []string   `json:"invalid_symbols,omitempty"`
	News           []NewsItem `json:"news"`
	// NewsError carries a headline-fetch problem without failing the
	// quotes that did arrive.
	NewsError string `json:"news_error,omitempty"`
}

// MarketCollector fetches quotes for the configured symbols and recent news
// headlines for the configured query.
type MarketCollector struct {
	cfg     config.MarketConfig
	timeout time.Duration
	logger  *log.Logger
	client  *http.Client
}

func NewMarketCollector(cfg config.MarketConfig, timeout time.Duration, logger *log.Logger) *MarketCollector {
	return &MarketCollector{
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *MarketCollector) Name() string { return NameMarket }

func (c *MarketCollector) Fetch(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	quotes, invalid, err := c.fetchQuotes(ctx)
	if err != nil {
		return Failuref(NameMarket, "%v", err)
	}

	data := MarketData{Quotes: quotes, InvalidSymbols: invalid}
	news, err := c.fetchNews(ctx)
	if err != nil {
		c.logger.Printf("[MARKET] news fetch failed: %v", err)
		data.NewsError = err.Error()
	} else {
		data.News = news
	}

	if len(data.Quotes) == 0 && len(data.News) == 0 && data.NewsError == "" {
		return Empty(NameMarket, "no market data")
	}
	return Success(NameMarket, data)
}

// fetchQuotes calls the quote endpoint for all configured symbols at once
// and projects the whitelisted fields. A response without any price-like
// field means the ticker is bogus; bogus tickers in a mixed batch are
// reported alongside the quotes that did resolve.
func (c *MarketCollector) fetchQuotes(ctx context.Context) ([]map[string]interface{}, []string, error) {
	symbols := make([]string, 0, len(c.cfg.Symbols))
	for _, s := range c.cfg.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil, nil, nil
	}

	reqURL := fmt.Sprintf("%s?symbols=%s", c.cfg.QuoteEndpoint, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building quote request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching quotes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("quote endpoint returned %s", resp.Status)
	}

	var raw struct {
		QuoteResponse struct {
			Result []map[string]interface{} `json:"result"`
		} `json:"quoteResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decoding quote response: %w", err)
	}

	var quotes []map[string]interface{}
	resolved := make(map[string]bool, len(symbols))
	for _, info := range raw.QuoteResponse.Result {
		if info["currentPrice"] == nil && info["regularMarketPrice"] == nil {
			continue
		}
		projected := make(map[string]interface{}, len(quoteFields))
		for _, k := range quoteFields {
			if v, ok := info[k]; ok && v != nil {
				projected[k] = v
			}
		}
		if symbol, ok := info["symbol"].(string); ok {
			resolved[strings.ToUpper(symbol)] = true
		}
		quotes = append(quotes, projected)
	}
	if len(quotes) == 0 {
		return nil, nil, fmt.Errorf("invalid ticker")
	}

	var invalid []string
	for _, s := range symbols {
		if !resolved[s] {
			invalid = append(invalid, s)
		}
	}
	return quotes, invalid, nil
}

func (c *MarketCollector) fetchNews(ctx context.Context) ([]NewsItem, error) {
	if c.cfg.NewsQuery == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", c.cfg.NewsQuery)
	params.Set("hl", "es-ES")
	params.Set("gl", "ES")
	params.Set("ceid", "ES:es")

	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0"
	feed, err := parser.ParseURLWithContext(fmt.Sprintf("%s?%s", c.cfg.NewsEndpoint, params.Encode()), ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing news feed: %w", err)
	}

	max := c.cfg.MaxNews
	if max <= 0 {
		max = 5
	}
	var items []NewsItem
	for i, entry := range feed.Items {
		if i >= max {
			break
		}
		published := entry.Published
		if published == "" && entry.PublishedParsed != nil {
			published = entry.PublishedParsed.Format(time.RFC1123)
		}
		items = append(items, NewsItem{
			Title:     entry.Title,
			Link:      entry.Link,
			Published: published,
			Source:    "Google News",
		})
	}
	return items, nil
}
