// Package screener scrapes supplementary company data from screener.in
package screener

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const (
	DefaultBaseURL = "https://www.screener.in"
	DefaultTimeout = 10 * time.Second
)

// quarterPattern matches column headers like "Mar 25" or "Dec 24".
var quarterPattern = regexp.MustCompile(`^[A-Za-z]{3} \d{2}$`)

// Client implements the ScreenerClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new screener client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// fetchDocument GETs a page and parses it.
func (c *Client) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener returned status %d for %s", resp.StatusCode, path)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	return doc, nil
}

// FetchCompanyName retrieves the display name from the company page h1.
func (c *Client) FetchCompanyName(ctx context.Context, symbol string) (string, error) {
	doc, err := c.fetchDocument(ctx, fmt.Sprintf("/company/%s/", symbol))
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return "", fmt.Errorf("no company name found for %s", symbol)
	}

	return name, nil
}

// FetchInstitutionalTrend scrapes quarterly FII/DII holding percentages
// from the consolidated shareholding table. Status is "increase" when
// either investor class grew quarter-on-quarter, "decrease" when either
// shrank, and "stable" otherwise.
func (c *Client) FetchInstitutionalTrend(ctx context.Context, symbol string) (*models.InstitutionalTrend, error) {
	doc, err := c.fetchDocument(ctx, fmt.Sprintf("/company/%s/consolidated/", symbol))
	if err != nil {
		return nil, err
	}

	var quarters []string
	doc.Find("table.data-table th").Each(func(_ int, th *goquery.Selection) {
		text := strings.TrimSpace(th.Text())
		if quarterPattern.MatchString(text) && len(quarters) < 4 {
			quarters = append(quarters, text)
		}
	})

	var fii, dii []float64
	doc.Find("table.data-table tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(tds.First().Text()))
		switch {
		case strings.Contains(label, "foreign institutional investors") || strings.Contains(label, "fii"):
			fii = parsePercentRow(tds)
		case strings.Contains(label, "domestic institutional investors") || strings.Contains(label, "dii"):
			dii = parsePercentRow(tds)
		}
	})

	if len(fii) < 2 || len(dii) < 2 {
		return nil, fmt.Errorf("no FII/DII rows found for %s", symbol)
	}

	status := "stable"
	fiiIncrease := fii[0] > fii[1]
	diiIncrease := dii[0] > dii[1]
	if fiiIncrease || diiIncrease {
		status = "increase"
	} else if fii[0] < fii[1] || dii[0] < dii[1] {
		status = "decrease"
	}

	return &models.InstitutionalTrend{
		Quarters: quarters,
		FII:      fii,
		DII:      dii,
		Status:   status,
	}, nil
}

// parsePercentRow converts cells 1..4 of a shareholding row to floats,
// stripping the % suffix. Empty cells become 0.
func parsePercentRow(tds *goquery.Selection) []float64 {
	var values []float64
	tds.Each(func(i int, td *goquery.Selection) {
		if i == 0 || i > 4 {
			return
		}
		text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(td.Text()), "%"))
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			v = 0
		}
		values = append(values, v)
	})
	return values
}

// Ensure Client implements ScreenerClient
var _ interfaces.ScreenerClient = (*Client)(nil)
