// Package gateway is the request/response contract with the external payment
// provider. Only opening intents is in scope; the provider reports terminal
// results back through the payments callback route.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
)

// Intent is the gateway-side handle for one attempt to collect a fixed amount.
type Intent struct {
	ID           string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) OpenIntent(ctx context.Context, amount float64, currency, method string) (Intent, error) {
	body, err := json.Marshal(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"method":   method,
	})
	if err != nil {
		return Intent{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return Intent{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Intent{}, errors.Wrap(domain.ErrGateway, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Intent{}, errors.Wrapf(domain.ErrGateway, "gateway returned %d", resp.StatusCode)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return Intent{}, errors.Wrap(domain.ErrGateway, err.Error())
	}
	if intent.ID == "" {
		return Intent{}, errors.Wrap(domain.ErrGateway, "empty intent id")
	}
	return intent, nil
}
