package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type KycClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewKycClient(baseURL string, timeout time.Duration) *KycClient {
	return &KycClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsVerified reports whether the KYC service considers the customer
// verified. An unknown customer reads as unverified.
func (c *KycClient) IsVerified(ctx context.Context, customerID int64) (bool, error) {
	url := fmt.Sprintf("%s/api/kyc/customer/%d/status", c.baseURL, customerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create kyc service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call kyc service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("failed to decode kyc service response: %w", err)
		}
		return body.Status == "VERIFIED", nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("kyc service returned status %d", resp.StatusCode)
	}
}
