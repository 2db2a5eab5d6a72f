package payhere

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenCacheKey = "payhere:access_token"

// Verifier is what the payment handlers depend on; *Client is the live
// implementation.
type Verifier interface {
	VerifyPayment(ctx context.Context, orderID string) (*Verification, error)
}

// Client talks to the PayHere merchant API. Verification is a strict
// single-attempt flow: token exchange, then payment search; transient
// failures surface to the caller, there is no retry.
type Client struct {
	BaseURL   string
	AppID     string
	AppSecret string
	HTTP      *http.Client

	// Cache, when non-nil, holds the OAuth token for its expires_in window
	// so repeated verifications skip the exchange.
	Cache *redis.Client
}

func NewClient(baseURL, appID, appSecret string, cache *redis.Client) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AppID:     appID,
		AppSecret: appSecret,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		Cache:     cache,
	}
}

// PaymentRecord is one entry of the payment-search response.
type PaymentRecord struct {
	PaymentID json.Number `json:"payment_id"`
	OrderID   string      `json:"order_id"`
	Status    string      `json:"status"`
	Method    string      `json:"method"`
	Currency  string      `json:"currency"`
	Amount    json.Number `json:"amount"`
}

type Verification struct {
	PaymentStatus       string         `json:"paymentStatus"`
	IsPaymentSuccessful bool           `json:"isPaymentSuccessful"`
	Payment             *PaymentRecord `json:"paymentData,omitempty"`
}

// VerifyPayment looks an order up at the gateway. Success is strictly a
// first record with status RECEIVED; an empty result or any other status is
// an unsuccessful (but not errored) verification.
func (c *Client) VerifyPayment(ctx context.Context, orderID string) (*Verification, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := c.searchPayment(ctx, token, orderID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Verification{PaymentStatus: "", IsPaymentSuccessful: false}, nil
	}
	return &Verification{
		PaymentStatus:       rec.Status,
		IsPaymentSuccessful: rec.Status == SearchStatusReceived,
		Payment:             rec,
	}, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.Cache != nil {
		if cached, err := c.Cache.Get(ctx, tokenCacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/merchant/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("payhere: build token request: %w", err)
	}
	req.SetBasicAuth(c.AppID, c.AppSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("payhere: token exchange: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("payhere: token exchange failed: %s: %s", res.Status, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("payhere: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("payhere: no access token in response")
	}

	if c.Cache != nil && tok.ExpiresIn > 1 {
		// Shave a minute off the TTL so a cached token never expires mid-call.
		ttl := time.Duration(tok.ExpiresIn)*time.Second - time.Minute
		if ttl > 0 {
			// Cache trouble never fails a verification.
			_ = c.Cache.Set(ctx, tokenCacheKey, tok.AccessToken, ttl).Err()
		}
	}
	return tok.AccessToken, nil
}

func (c *Client) searchPayment(ctx context.Context, token, orderID string) (*PaymentRecord, error) {
	u := c.BaseURL + "/merchant/v1/payment/search?order_id=" + url.QueryEscape(orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("payhere: build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payhere: payment search: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("payhere: payment search failed: %s: %s", res.Status, body)
	}

	var out struct {
		Status int             `json:"status"`
		Msg    string          `json:"msg"`
		Data   []PaymentRecord `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("payhere: decode search response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}
