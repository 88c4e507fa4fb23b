package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the hosted-checkout gateway. Every call is a single
// attempt bounded by the client timeout; the caller decides what a
// failure means for the order.
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type chargeRequest struct {
	OrderID     string `json:"order_id"`
	GrossAmount string `json:"gross_amount"`
}

type ChargeResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Charge opens a gateway transaction for the order and returns the
// token and hosted-checkout redirect URL.
func (c *Client) Charge(ctx context.Context, orderID string, amount decimal.Decimal) (*ChargeResponse, error) {
	body, err := json.Marshal(chargeRequest{
		OrderID:     orderID,
		GrossAmount: amount.StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("charge failed with status: %d", resp.StatusCode)
	}

	var result ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Token == "" || result.RedirectURL == "" {
		return nil, fmt.Errorf("gateway returned empty token or redirect url")
	}
	return &result, nil
}
