package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
	xhttp "RatePull/pkg/http"
	applogger "RatePull/pkg/logger"
)

// Columns maps rate-table cell positions to price fields.
type Columns struct {
	Code        int
	Name        int
	BuyCash     int
	BuyTransfer int
	Sell        int
}

// DefaultColumns matches the common bank layout:
// code | currency name | cash buying | transfer buying | selling.
func DefaultColumns() Columns {
	return Columns{Code: 0, Name: 1, BuyCash: 2, BuyTransfer: 3, Sell: 4}
}

// max returns the highest column index a row must cover.
func (c Columns) max() int {
	m := c.Code
	for _, i := range []int{c.Name, c.BuyCash, c.BuyTransfer, c.Sell} {
		if i > m {
			m = i
		}
	}
	return m
}

// Source describes one bank's published rate table.
type Source struct {
	Bank    string
	URL     string
	Table   string // CSS selector of the rate table, e.g. "table.rate-table"
	Columns Columns
}

// Crawler implements Producer by scraping bank rate tables. One bank
// failing only loses that bank's rows; the run still returns the rest.
type Crawler struct {
	sources     []Source
	client      *xhttp.Client
	l           *applogger.Logger
	userAgent   string
	concurrency int
}

type Option func(*Crawler)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(cr *Crawler) {
		if c != nil {
			cr.client = c
		}
	}
}

// WithUserAgent sets the request User-Agent.
func WithUserAgent(ua string) Option {
	return func(cr *Crawler) {
		if ua != "" {
			cr.userAgent = ua
		}
	}
}

// WithConcurrency caps parallel bank fetches.
func WithConcurrency(n int) Option {
	return func(cr *Crawler) {
		if n > 0 {
			cr.concurrency = n
		}
	}
}

// New creates a Crawler over the given sources.
func New(sources []Source, l *applogger.Logger, opts ...Option) *Crawler {
	c := &Crawler{
		sources:     sources,
		client:      xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		l:           l,
		userAgent:   "RatePull/1.0",
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Produce scrapes every configured source and returns the combined raw
// observations. Only a run with zero usable sources errors out.
func (c *Crawler) Produce(ctx context.Context) ([]models.RawObservation, error) {
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	var mu sync.Mutex
	var out []models.RawObservation
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, src := range c.sources {
		src := src
		g.Go(func() error {
			obs, err := c.scrape(gctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if c.l != nil {
					c.l.Warn("source scrape failed",
						applogger.String("bank", src.Bank),
						applogger.String("url", src.URL),
						applogger.Error(err),
					)
				}
				return nil
			}
			out = append(out, obs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed == len(c.sources) {
		return nil, fmt.Errorf("all %d sources failed", failed)
	}
	return out, nil
}

func (c *Crawler) scrape(ctx context.Context, src Source) ([]models.RawObservation, error) {
	var body []byte
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    src.URL,
		Headers: map[string]string{
			"User-Agent": c.userAgent,
			"Accept":     "text/html",
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return c.parseTable(doc, src), nil
}

func (c *Crawler) parseTable(doc *goquery.Document, src Source) []models.RawObservation {
	cols := src.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns()
	}

	var out []models.RawObservation
	doc.Find(src.Table + " tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td").Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		if len(cells) <= cols.max() {
			return
		}
		code := cells[cols.Code]
		if code == "" {
			return
		}
		out = append(out, models.RawObservation{
			Bank:        src.Bank,
			Code:        code,
			Name:        cells[cols.Name],
			BuyCash:     cellNumber(cells[cols.BuyCash]),
			BuyTransfer: cellNumber(cells[cols.BuyTransfer]),
			Sell:        cellNumber(cells[cols.Sell]),
			Source:      src.URL,
		})
	})
	return out
}

// cellNumber strips thousands separators; "-" and "" pass through as the
// no-quote sentinel for the normalizer to classify.
func cellNumber(s string) models.Number {
	return models.NumberText(strings.ReplaceAll(s, ",", ""))
}

var _ domrepo.Producer = (*Crawler)(nil)
