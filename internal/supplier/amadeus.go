package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
)

// Client is the REST client for the flight supplier. Auth is OAuth
// client-credentials; the access token is cached in Redis and refreshed
// inside the expiry buffer.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Tokens       *RedisTokenCache
	Logger       *logger.Logger
}

func NewClient(baseURL, clientID, clientSecret string, tokens *RedisTokenCache, log *logger.Logger) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		Tokens:       tokens,
		Logger:       log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a valid bearer token, hitting the token endpoint only
// when the cached one is missing or inside the expiry buffer.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.Tokens != nil {
		cached, err := c.Tokens.GetToken(ctx)
		if err != nil {
			c.Logger.Warn("SUPPLIER", fmt.Sprintf("token cache read failed, fetching fresh token: %v", err))
		} else if cached != nil {
			return cached.Token, nil
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request returned %s: %s", resp.Status, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}

	if c.Tokens != nil {
		if err := c.Tokens.SetToken(ctx, tok.AccessToken, tok.ExpiresIn); err != nil {
			c.Logger.Warn("SUPPLIER", fmt.Sprintf("token cache write failed: %v", err))
		}
	}
	return tok.AccessToken, nil
}

// doJSON issues one authenticated request and decodes the response body into
// out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %s: %s", method, path, resp.Status, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SearchOffers runs a one-way or round-trip offer search.
func (c *Client) SearchOffers(ctx context.Context, query models.OfferQuery) ([]models.Offer, error) {
	params := url.Values{}
	params.Set("originLocationCode", query.Origin)
	params.Set("destinationLocationCode", query.Destination)
	params.Set("departureDate", query.DepartureDate)
	if query.ReturnDate != "" {
		params.Set("returnDate", query.ReturnDate)
	}
	params.Set("adults", strconv.Itoa(query.Adults))
	params.Set("currencyCode", query.Currency)
	params.Set("max", "20")

	var result struct {
		Data []models.Offer `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v2/shopping/flight-offers?"+params.Encode(), nil, nil, &result); err != nil {
		return nil, err
	}
	c.Logger.Info("SUPPLIER", fmt.Sprintf("search %s-%s returned %d offers", query.Origin, query.Destination, len(result.Data)))
	return result.Data, nil
}

// PriceOffer confirms the price of one offer and returns the bookable quote.
func (c *Client) PriceOffer(ctx context.Context, offerID string) (*models.PricedOffer, error) {
	var result struct {
		Data models.PricedOffer `json:"data"`
	}
	path := fmt.Sprintf("/v1/shopping/flight-offers/%s/pricing", url.PathEscape(offerID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// GetSeatMap fetches the seat layout for the first segment of a priced offer.
func (c *Client) GetSeatMap(ctx context.Context, offerID string) (*models.SeatMap, error) {
	var result struct {
		Data models.SeatMap `json:"data"`
	}
	path := "/v1/shopping/seatmaps?flight-offer-id=" + url.QueryEscape(offerID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// CreateOrder books the offer. The caller's idempotency key makes a retried
// create return the original order instead of double-booking.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.SupplierOrder, error) {
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	var result struct {
		Data models.SupplierOrder `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/booking/flight-orders", headers, req, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// CancelOrder voids a live order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := "/v1/booking/flight-orders/" + url.PathEscape(orderID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}
