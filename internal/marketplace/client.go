package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"

	"fulfillment-api/internal/config"
	"fulfillment-api/pkg/logging"
)

// Client talks to the marketplace Fulfillment REST API. It owns credential
// exchange and response decoding; every failure surfaces as *Error.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient builds a client authenticating through the OAuth2
// client-credentials flow against the publisher's tenant.
func NewClient(cfg *config.Config, logger logging.Logger) *Client {
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{cfg.TokenScope},
	}

	httpClient := creds.Client(context.Background())
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(cfg.MarketplaceBaseURL, "/"),
		apiVersion: cfg.MarketplaceAPIVer,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewClientWithHTTP builds a client over a caller-supplied http.Client.
// Used by tests against a local server.
func NewClientWithHTTP(baseURL, apiVersion string, httpClient *http.Client, logger logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListSubscriptions fetches every subscription for the publisher, following
// continuation tokens until the vendor stops returning one.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var all []Subscription
	token := ""
	for {
		path := "/saas/subscriptions"
		if token != "" {
			path += "?continuationToken=" + url.QueryEscape(token)
		}

		var page subscriptionsPage
		if _, err := c.do(ctx, ActionGetAllSubscriptions, http.MethodGet, path, nil, nil, &page); err != nil {
			return nil, err
		}
		for i := range page.Subscriptions {
			page.Subscriptions[i].Status = normalizeStatus(page.Subscriptions[i].Status)
		}
		all = append(all, page.Subscriptions...)

		if page.NextLink == "" {
			return all, nil
		}
		token = page.NextLink
	}
}

// GetSubscription fetches a single subscription by id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	var sub Subscription
	path := fmt.Sprintf("/saas/subscriptions/%s", subscriptionID)
	if _, err := c.do(ctx, ActionGetSubscription, http.MethodGet, path, nil, nil, &sub); err != nil {
		return nil, err
	}
	sub.Status = normalizeStatus(sub.Status)
	return &sub, nil
}

// ListAvailablePlans fetches the plans the subscription may switch to.
func (c *Client) ListAvailablePlans(ctx context.Context, subscriptionID uuid.UUID) ([]PlanDetail, error) {
	var out availablePlans
	path := fmt.Sprintf("/saas/subscriptions/%s/listAvailablePlans", subscriptionID)
	if _, err := c.do(ctx, ActionGetAllPlans, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

// Resolve exchanges a purchase token for subscription identity. The token
// travels in the x-ms-marketplace-token header, not the body.
func (c *Client) Resolve(ctx context.Context, purchaseToken string) (*ResolvedSubscription, error) {
	var resolved ResolvedSubscription
	headers := map[string]string{"x-ms-marketplace-token": purchaseToken}
	if _, err := c.do(ctx, ActionResolve, http.MethodPost, "/saas/subscriptions/resolve", nil, headers, &resolved); err != nil {
		return nil, err
	}
	if resolved.Subscription != nil {
		resolved.Subscription.Status = normalizeStatus(resolved.Subscription.Status)
	}
	return &resolved, nil
}

// Activate signals fulfillment start for a newly purchased subscription.
func (c *Client) Activate(ctx context.Context, subscriptionID uuid.UUID, planID string) error {
	body := map[string]interface{}{"planId": planID}
	path := fmt.Sprintf("/saas/subscriptions/%s/activate", subscriptionID)
	_, err := c.do(ctx, ActionActivate, http.MethodPost, path, body, nil, nil)
	return err
}

// ChangePlan initiates an asynchronous plan change and returns the id of the
// vendor operation tracking it.
func (c *Client) ChangePlan(ctx context.Context, subscriptionID uuid.UUID, planID string) (uuid.UUID, error) {
	body := map[string]interface{}{"planId": planID}
	path := fmt.Sprintf("/saas/subscriptions/%s", subscriptionID)
	resp, err := c.do(ctx, ActionChangePlan, http.MethodPatch, path, body, nil, nil)
	if err != nil {
		return uuid.Nil, err
	}
	return operationIDFromResponse(ActionChangePlan, resp)
}

// ChangeQuantity initiates an asynchronous seat-count change.
func (c *Client) ChangeQuantity(ctx context.Context, subscriptionID uuid.UUID, quantity int) (uuid.UUID, error) {
	body := map[string]interface{}{"quantity": quantity}
	path := fmt.Sprintf("/saas/subscriptions/%s", subscriptionID)
	resp, err := c.do(ctx, ActionChangeQuantity, http.MethodPatch, path, body, nil, nil)
	if err != nil {
		return uuid.Nil, err
	}
	return operationIDFromResponse(ActionChangeQuantity, resp)
}

// Delete initiates unsubscribe for the subscription.
func (c *Client) Delete(ctx context.Context, subscriptionID uuid.UUID) (uuid.UUID, error) {
	path := fmt.Sprintf("/saas/subscriptions/%s", subscriptionID)
	resp, err := c.do(ctx, ActionDelete, http.MethodDelete, path, nil, nil, nil)
	if err != nil {
		return uuid.Nil, err
	}
	return operationIDFromResponse(ActionDelete, resp)
}

// GetOperation reads the current status of a pending operation.
func (c *Client) GetOperation(ctx context.Context, subscriptionID, operationID uuid.UUID) (*Operation, error) {
	var op Operation
	path := fmt.Sprintf("/saas/subscriptions/%s/operations/%s", subscriptionID, operationID)
	if _, err := c.do(ctx, ActionOperationStatus, http.MethodGet, path, nil, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// UpdateOperation acknowledges a vendor-initiated operation with Success or
// Failure.
func (c *Client) UpdateOperation(ctx context.Context, subscriptionID, operationID uuid.UUID, status UpdateOperationStatus) error {
	body := map[string]interface{}{"status": string(status)}
	path := fmt.Sprintf("/saas/subscriptions/%s/operations/%s", subscriptionID, operationID)
	_, err := c.do(ctx, ActionUpdateOperationStatus, http.MethodPatch, path, body, nil, nil)
	return err
}

// do executes one API call: attach the api-version, send, classify non-2xx
// responses, decode the payload into out when provided.
func (c *Client) do(ctx context.Context, action Action, method, path string, body interface{}, headers map[string]string, out interface{}) (*http.Response, error) {
	endpoint := c.baseURL + path
	if strings.Contains(path, "?") {
		endpoint += "&api-version=" + url.QueryEscape(c.apiVersion)
	} else {
		endpoint += "?api-version=" + url.QueryEscape(c.apiVersion)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, transportError(action, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, transportError(action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("marketplace %s request failed: %v", action, err)
		return nil, transportError(action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := classifyStatus(action, resp.StatusCode, strings.TrimSpace(string(detail)))
		c.logger.Errorf("marketplace %s returned %d: %s", action, resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.logger.Errorf("marketplace %s response decode failed: %v", action, err)
			return nil, transportError(action, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp, nil
}

// operationIDFromResponse pulls the operation id out of the
// Operation-Location header the vendor sets on 202 responses.
func operationIDFromResponse(action Action, resp *http.Response) (uuid.UUID, error) {
	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return uuid.Nil, &Error{Code: CodeUnknown, Action: action, Message: "response missing Operation-Location header"}
	}
	if i := strings.IndexByte(location, '?'); i >= 0 {
		location = location[:i]
	}
	segments := strings.Split(strings.TrimRight(location, "/"), "/")
	id, err := uuid.Parse(segments[len(segments)-1])
	if err != nil {
		return uuid.Nil, &Error{Code: CodeUnknown, Action: action, Message: "malformed Operation-Location header: " + err.Error()}
	}
	return id, nil
}
