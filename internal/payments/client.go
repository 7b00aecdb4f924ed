package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PaymentLink is the checkout handle returned by the gateway.
type PaymentLink struct {
	OrderCode   int64  `json:"order_code"`
	CheckoutURL string `json:"checkout_url"`
}

// Provider creates checkout links for completed notarizations.
type Provider interface {
	CreatePaymentLink(ctx context.Context, orderCode int64, amount int64, description, returnURL, cancelURL string) (*PaymentLink, error)
}

type httpProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewProvider builds an HTTP client against the payment gateway.
func NewProvider(baseURL, apiKey string, timeout time.Duration) Provider {
	return &httpProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (p *httpProvider) CreatePaymentLink(ctx context.Context, orderCode int64, amount int64, description, returnURL, cancelURL string) (*PaymentLink, error) {
	payload := map[string]interface{}{
		"orderCode":   orderCode,
		"amount":      amount,
		"description": description,
		"returnUrl":   returnURL,
		"cancelUrl":   cancelURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			OrderCode   int64  `json:"orderCode"`
			CheckoutURL string `json:"checkoutUrl"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}

	return &PaymentLink{
		OrderCode:   result.Data.OrderCode,
		CheckoutURL: result.Data.CheckoutURL,
	}, nil
}
