package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/priceboard-backend/internal/httputil"
	"github.com/kjannette/priceboard-backend/internal/models"
)

// Client talks to the external scraping backend. The backend owns the
// browser automation; this side only forwards scraper definitions and
// relays results.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	// once is used for calls that start work on the backend; a resent
	// scrape-all or push would run twice.
	once       httputil.RetryConfig
	log        zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		once: httputil.RetryConfig{MaxAttempts: 1},
		log:  log,
	}
	c.retry.Log = &c.log
	c.once.Log = &c.log
	return c
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// TestError describes where a scraper run stopped. Index is the failing
// action position; Screenshot is a base64 capture when the backend took one.
type TestError struct {
	Text       string  `json:"text"`
	Index      int     `json:"index"`
	Screenshot *string `json:"screenshot"`
}

type TestResult struct {
	Price float64    `json:"price"`
	Error *TestError `json:"error,omitempty"`
}

type testRequest struct {
	URL                string                 `json:"url"`
	Actions            []models.ScraperAction `json:"actions,omitempty"`
	CookieBannerXPaths []string               `json:"cookieBannerXPaths,omitempty"`
}

// Status reports whether the backend answers POST /status with 200.
func (c *Client) Status(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	resp, err := c.post(ctx, c.retry, "/status", "", nil)
	if err != nil {
		c.log.Debug().Err(err).Msg("status check failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// TestScraper runs the action list against url on the backend. Transport
// failures are folded into the result as an error at index 0 so callers
// can render them the same way as a failing action; the error is returned
// as well for logging.
func (c *Client) TestScraper(ctx context.Context, url string, actions []models.ScraperAction, cookieXPaths []string) (TestResult, error) {
	return c.runTest(ctx, "/test-scraper", testRequest{URL: url, Actions: actions, CookieBannerXPaths: cookieXPaths})
}

// TestAI asks the backend to locate the price on url without actions.
func (c *Client) TestAI(ctx context.Context, url string) (TestResult, error) {
	return c.runTest(ctx, "/test-ai", testRequest{URL: url})
}

func (c *Client) runTest(ctx context.Context, path string, body testRequest) (TestResult, error) {
	var result TestResult
	if err := c.postJSON(ctx, c.retry, path, body, &result); err != nil {
		return failedResult(err), err
	}
	return result, nil
}

func failedResult(err error) TestResult {
	return TestResult{Error: &TestError{Text: err.Error(), Index: 0}}
}

// PushToWordpress publishes a scraper definition. The backend response is
// relayed unchanged.
func (c *Client) PushToWordpress(ctx context.Context, url string, actions []models.ScraperAction) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.postJSON(ctx, c.once, "/push-to-wordpress", testRequest{URL: url, Actions: actions}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScrapeAll triggers a full catalog scrape. The backend response is relayed
// unchanged. It is sent once; a failed trigger is reported, not resent.
func (c *Client) ScrapeAll(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.postJSON(ctx, c.once, "/scrape-all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type detectedIngredient struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
}

// AnalyzeImage uploads a label photo and returns the detected ingredients.
func (c *Client) AnalyzeImage(ctx context.Context, filename string, image []byte) ([]models.Ingredient, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.post(ctx, c.retry, "/analyze-image", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("/analyze-image", resp)
	}

	var raw []detectedIngredient
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}
	out := make([]models.Ingredient, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.Ingredient{Name: r.Name, Amount: parseAmount(r.Amount)})
	}
	return out, nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)

// parseAmount accepts a JSON number or a string such as "2.5 g" and keeps
// the leading numeric part. Anything unparseable becomes 0.
func parseAmount(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func (c *Client) postJSON(ctx context.Context, retry httputil.RetryConfig, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		body = b
	}

	resp, err := c.post(ctx, retry, path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, retry httputil.RetryConfig, path, contentType string, body []byte) (*http.Response, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("scraper backend not configured")
	}
	resp, err := httputil.Do(ctx, c.httpClient, retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scraper %s: %w", path, err)
	}
	return resp, nil
}

func statusError(path string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("scraper %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
}
