package esp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const lookupPageSize = 1000

// ClientOptions configures the HTTP provider client
type ClientOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	Logger    *slog.Logger
}

// Client talks to a Mailchimp-compatible REST API
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a provider client. Requests are rate limited because the
// provider caps simultaneous connections per account.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		logger:     opts.Logger,
	}
}

// List returns a handle on the given provider list
func (c *Client) List(listID string) List {
	return &mailingList{client: c, listID: listID, timeout: c.timeout}
}

// Ping checks the provider is reachable with the configured credentials
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, c.timeout, "ping", http.MethodGet, "/ping", nil, nil)
}

// do performs one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, timeout time.Duration, op, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return &ConnectionError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.SetBasicAuth("newsletteradmin", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("esp request failed", "op", op, "method", method, "path", path, "error", err)
		return classifyTransportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("esp request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		apiErr.Status = resp.StatusCode
		if apiErr.Title == "" {
			apiErr.Title = http.StatusText(resp.StatusCode)
		}
		if isGatewayStatus(resp.StatusCode) {
			return &ConnectionError{Op: op, Err: apiErr}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return classifyTransportError(op, fmt.Errorf("failed to decode %s response: %w", op, err))
	}

	return nil
}

type mailingList struct {
	client  *Client
	listID  string
	timeout time.Duration
}

func (l *mailingList) SetTimeout(d time.Duration) {
	if d > 0 {
		l.timeout = d
	}
}

func (l *mailingList) SaveCampaign(ctx context.Context, campaign *Campaign, lookupByTitle bool) (string, error) {
	if campaign == nil {
		return "", errors.New("campaign is required")
	}
	if campaign.ListID == "" {
		campaign.ListID = l.listID
	}

	if campaign.ID == "" && lookupByTitle {
		id, err := l.findCampaignByTitle(ctx, campaign.Title)
		if err != nil {
			return "", err
		}
		campaign.ID = id
	}

	req := newCampaignRequest(campaign)

	if campaign.ID != "" {
		var resp campaignResponse
		path := "/campaigns/" + url.PathEscape(campaign.ID)
		if err := l.client.do(ctx, l.timeout, "update campaign", http.MethodPatch, path, req, &resp); err != nil {
			return "", err
		}
		return campaign.ID, nil
	}

	var resp campaignResponse
	if err := l.client.do(ctx, l.timeout, "create campaign", http.MethodPost, "/campaigns", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("esp returned an empty campaign id")
	}

	campaign.ID = resp.ID
	return resp.ID, nil
}

func (l *mailingList) UploadResources(ctx context.Context, campaign *Campaign) error {
	if campaign == nil || campaign.ID == "" {
		return errors.New("campaign must be saved before uploading resources")
	}

	content := campaignContentRequest{
		HTML:      campaign.HTMLContent,
		PlainText: campaign.TextContent,
	}
	path := "/campaigns/" + url.PathEscape(campaign.ID) + "/content"

	return l.client.do(ctx, l.timeout, "upload resources", http.MethodPut, path, content, nil)
}

// findCampaignByTitle pages through the list's campaigns. An empty id means
// no campaign carries the title.
func (l *mailingList) findCampaignByTitle(ctx context.Context, title string) (string, error) {
	for offset := 0; ; offset += lookupPageSize {
		query := url.Values{}
		query.Set("list_id", l.listID)
		query.Set("count", strconv.Itoa(lookupPageSize))
		query.Set("offset", strconv.Itoa(offset))
		query.Set("fields", "campaigns.id,campaigns.settings.title,total_items")

		var page campaignListResponse
		if err := l.client.do(ctx, l.timeout, "lookup campaign", http.MethodGet, "/campaigns?"+query.Encode(), nil, &page); err != nil {
			return "", err
		}

		for _, c := range page.Campaigns {
			if c.Settings.Title == title {
				return c.ID, nil
			}
		}

		if len(page.Campaigns) < lookupPageSize || offset+lookupPageSize >= page.TotalItems {
			return "", nil
		}
	}
}
