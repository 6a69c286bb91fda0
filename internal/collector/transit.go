package collector

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohammad-safakhou/daybrief/config"
	"github.com/mohammad-safakhou/daybrief/internal/ocr"
)

const transitImageMaxBytes = 8 << 20

// TransitReport is the transit collector payload: bulletin link, the lines
// matching the alert keyword and a bounded excerpt of the extracted text.
type TransitReport struct {
	Bulletin   string   `json:"bulletin"`
	AlertLines []string `json:"alert_lines,omitempty"`
	Excerpt    string   `json:"excerpt"`
}

// TransitCollector scrapes the daily transit bulletin: index page, first
// bulletin link, first news photo, then text extraction over the image.
type TransitCollector struct {
	cfg       config.TransitConfig
	extractor *ocr.Extractor
	timeout   time.Duration
	logger    *log.Logger
	client    *http.Client
}

func NewTransitCollector(cfg config.TransitConfig, extractor *ocr.Extractor, timeout time.Duration, logger *log.Logger) *TransitCollector {
	return &TransitCollector{
		cfg:       cfg,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *TransitCollector) Name() string { return NameTransit }

func (c *TransitCollector) Fetch(ctx context.Context) Result {
	indexDoc, err := c.fetchDocument(ctx, c.cfg.IndexURL)
	if err != nil {
		return Failuref(NameTransit, "fetching index page: %v", err)
	}

	bulletinURL := c.findLink(indexDoc, c.cfg.IndexURL)
	if bulletinURL == "" {
		return Failure(NameTransit, "no bulletin found")
	}

	bulletinDoc, err := c.fetchDocument(ctx, bulletinURL)
	if err != nil {
		return Failuref(NameTransit, "fetching bulletin page: %v", err)
	}

	imageURL := c.findImage(bulletinDoc, bulletinURL)
	if imageURL == "" {
		return Failure(NameTransit, "no image found")
	}

	image, err := c.fetchBytes(ctx, imageURL)
	if err != nil {
		return Failuref(NameTransit, "downloading bulletin image: %v", err)
	}

	text, err := c.extractor.Extract(ctx, image)
	if err != nil {
		return Failuref(NameTransit, "ocr: %v", err)
	}

	report := TransitReport{
		Bulletin: bulletinURL,
		Excerpt:  truncate(text, c.excerptLimit()),
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, c.cfg.AlertKeyword) {
			report.AlertLines = append(report.AlertLines, strings.TrimSpace(line))
		}
	}

	c.logger.Printf("[TRANSIT] bulletin processed, %d alert lines", len(report.AlertLines))
	return Success(NameTransit, report)
}

func (c *TransitCollector) excerptLimit() int {
	if c.cfg.ExcerptLimit > 0 {
		return c.cfg.ExcerptLimit
	}
	return 500
}

// findLink returns the first anchor whose href matches the bulletin pattern,
// resolved against the page URL.
func (c *TransitCollector) findLink(doc *goquery.Document, pageURL string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.Contains(href, c.cfg.BulletinPattern) {
			found = resolveURL(pageURL, href)
			return false
		}
		return true
	})
	return found
}

// findImage returns the first image whose src matches the news-photo
// pattern, resolved against the page URL.
func (c *TransitCollector) findImage(doc *goquery.Document, pageURL string) string {
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.Contains(src, c.cfg.ImagePattern) {
			found = resolveURL(pageURL, src)
			return false
		}
		return true
	})
	return found
}

func (c *TransitCollector) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

func (c *TransitCollector) fetchBytes(ctx context.Context, fileURL string) ([]byte, error) {
	body, err := c.get(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, transitImageMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileURL, err)
	}
	return data, nil
}

func (c *TransitCollector) get(ctx context.Context, target string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}
	return &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelReadCloser) Close() error {
	r.cancel()
	return r.ReadCloser.Close()
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
