// Package instantly is a client for the Instantly.ai-style sending platform
// API: campaign management, lead upload, and engagement event retrieval.
// The engine never sends mail itself; this client is its only contact with
// the delivery side.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ignite/outbound-lab/internal/pkg/httpretry"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.instantly.ai/api/v1"

// DefaultPageSize is the page size used by the paginating helpers.
const DefaultPageSize = 100

// APIError is returned when the platform answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instantly API error (status %d): %s", e.StatusCode, e.Body)
}

// Client talks to the platform API. Requests retry on 429/5xx and transient
// network errors via httpretry.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a platform client. baseURL may be empty for production.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, 3),
	}
}

// SetHTTPClient overrides the transport, mainly for tests.
func (c *Client) SetHTTPClient(doer httpretry.HTTPDoer) { c.httpClient = doer }

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload interface{}) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// ListCampaigns returns a single page of campaigns.
func (c *Client) ListCampaigns(ctx context.Context, skip, limit int) ([]Campaign, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, http.MethodGet, "/campaign/list", params, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Campaigns []Campaign `json:"campaigns"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding campaigns: %w", err)
	}
	return out.Campaigns, nil
}

// GetCampaign fetches one campaign by platform id.
func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	params := url.Values{}
	params.Set("campaign_id", campaignID)

	body, err := c.doRequest(ctx, http.MethodGet, "/campaign/get", params, nil)
	if err != nil {
		return nil, err
	}
	var out Campaign
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding campaign: %w", err)
	}
	return &out, nil
}

// LaunchCampaign starts sending on the platform.
func (c *Client) LaunchCampaign(ctx context.Context, campaignID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/campaign/launch", nil,
		map[string]string{"campaign_id": campaignID})
	return err
}

// PauseCampaign pauses sending on the platform.
func (c *Client) PauseCampaign(ctx context.Context, campaignID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/campaign/pause", nil,
		map[string]string{"campaign_id": campaignID})
	return err
}

// AddLeads uploads leads to a platform campaign. The platform skips leads
// already present in the campaign.
func (c *Client) AddLeads(ctx context.Context, campaignID string, leads []Lead) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/lead/add", nil, map[string]interface{}{
		"campaign_id":         campaignID,
		"leads":               leads,
		"skip_if_in_campaign": true,
	})
	return err
}

// GetCampaignAnalytics returns the platform's aggregate counters.
func (c *Client) GetCampaignAnalytics(ctx context.Context, campaignID string) (*CampaignAnalytics, error) {
	params := url.Values{}
	params.Set("campaign_id", campaignID)

	body, err := c.doRequest(ctx, http.MethodGet, "/analytics/campaign/summary", params, nil)
	if err != nil {
		return nil, err
	}
	var out CampaignAnalytics
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding analytics: %w", err)
	}
	return &out, nil
}

// GetLeadActivity returns engagement events for a campaign, optionally
// filtered by lead email and event type ("sent", "opened", "replied",
// "bounced").
func (c *Client) GetLeadActivity(ctx context.Context, campaignID, email, eventType string) ([]Activity, error) {
	params := url.Values{}
	params.Set("campaign_id", campaignID)
	if email != "" {
		params.Set("email", email)
	}
	if eventType != "" {
		params.Set("event_type", eventType)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/lead/activity", params, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Activities []Activity `json:"activities"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}
	return out.Activities, nil
}

// GetReplies returns a single page of replies for a campaign.
func (c *Client) GetReplies(ctx context.Context, campaignID string, skip, limit int) ([]Reply, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	params := url.Values{}
	params.Set("campaign_id", campaignID)
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, http.MethodGet, "/campaign/replies", params, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Replies []Reply `json:"replies"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding replies: %w", err)
	}
	return out.Replies, nil
}

// AllReplies pages through every reply for a campaign.
func (c *Client) AllReplies(ctx context.Context, campaignID string) ([]Reply, error) {
	var all []Reply
	for skip := 0; ; skip += DefaultPageSize {
		page, err := c.GetReplies(ctx, campaignID, skip, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < DefaultPageSize {
			return all, nil
		}
	}
}

// ListAccounts returns connected sending mailboxes.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/account/list", nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}
	return out.Accounts, nil
}
