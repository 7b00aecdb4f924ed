package minting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GatewayClient talks to the chain gateway that mints notarization NFTs.
type GatewayClient interface {
	Mint(ctx context.Context, contentURI string) (string, error)
	GetTransactionData(ctx context.Context, transactionHash string) (*TransactionData, error)
}

type httpGatewayClient struct {
	baseURL  string
	apiKey   string
	contract string
	http     *http.Client
}

// NewGatewayClient builds an HTTP client against the mint gateway.
func NewGatewayClient(baseURL, apiKey, contractAddress string, timeout time.Duration) GatewayClient {
	return &httpGatewayClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		contract: contractAddress,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *httpGatewayClient) Mint(ctx context.Context, contentURI string) (string, error) {
	payload := map[string]string{
		"contract":   c.contract,
		"contentUri": contentURI,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/mint", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("mint request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("mint gateway returned status %d", resp.StatusCode)
	}

	var result struct {
		TransactionHash string `json:"transactionHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode mint response: %w", err)
	}
	return result.TransactionHash, nil
}

func (c *httpGatewayClient) GetTransactionData(ctx context.Context, transactionHash string) (*TransactionData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transactions/"+transactionHash, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mint gateway returned status %d", resp.StatusCode)
	}

	var result struct {
		TransactionHash string `json:"transactionHash"`
		TokenID         string `json:"tokenId"`
		TokenURI        string `json:"tokenUri"`
		ContractAddress string `json:"contractAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	return &TransactionData{
		TransactionHash: result.TransactionHash,
		TokenID:         result.TokenID,
		TokenURI:        result.TokenURI,
		ContractAddress: result.ContractAddress,
	}, nil
}
