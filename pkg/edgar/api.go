package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// EdgarClient handles communications with Edgar APIs with rate limiting
type EdgarClient struct {
	userAgent  string
	httpClient *http.Client
}

// rateLimitedTransport wraps an HTTP transport with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// RoundTrip implements the http.RoundTripper interface with rate limiting
func (r *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return r.transport.RoundTrip(req)
}

// NewEdgarClient creates a new Edgar API client with rate limiting.
// The SEC asks for at most 10 requests per second and a descriptive
// User-Agent.
func NewEdgarClient(userAgent string, rateLimit int) *EdgarClient {
	if rateLimit <= 0 {
		rateLimit = 10
	}

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
	}

	return &EdgarClient{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (c *EdgarClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("EDGAR returned status %d for %s", resp.StatusCode, url)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return content, nil
}

// LoadSubmissions fetches and parses Edgar submissions data for a given CIK number
func (c *EdgarClient) LoadSubmissions(ctx context.Context, cik string) (*Submissions, error) {
	// Format CIK to 10 digits with leading zeros
	url := fmt.Sprintf("https://data.sec.gov/submissions/CIK%010s.json", cik)

	data, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	var submissions Submissions
	if err := json.Unmarshal(data, &submissions); err != nil {
		return nil, fmt.Errorf("failed to parse submissions JSON: %w", err)
	}
	return &submissions, nil
}

// LoadFilingIndex fetches the directory listing for one accession, used
// to discover the filing's linkbase and schema attachments.
func (c *EdgarClient) LoadFilingIndex(ctx context.Context, cik string, filing Filing) (*FilingIndex, error) {
	url := fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/index.json",
		cik, filing.AccessionPath())

	data, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to load filing index: %w", err)
	}

	var index FilingIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse filing index JSON: %w", err)
	}
	return &index, nil
}

// LoadDocument fetches the filing's primary inline-XBRL document.
func (c *EdgarClient) LoadDocument(ctx context.Context, cik string, filing Filing) ([]byte, error) {
	return c.LoadAttachment(ctx, cik, filing, filing.PrimaryDocument)
}

// LoadAttachment fetches one named file from a filing's archive
// directory, such as a linkbase or schema attachment.
func (c *EdgarClient) LoadAttachment(ctx context.Context, cik string, filing Filing, name string) ([]byte, error) {
	url := fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/%s",
		cik, filing.AccessionPath(), name)
	return c.get(ctx, url)
}
