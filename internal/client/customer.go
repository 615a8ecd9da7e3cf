// Package client holds the HTTP clients for the sibling customer and KYC
// services. Both are thin wrappers over net/http with a configured timeout;
// a timeout surfaces as an error the caller may retry, never a silent skip.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type CustomerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCustomerClient(baseURL string, timeout time.Duration) *CustomerClient {
	return &CustomerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CustomerExists asks the customer service whether the id is known.
// A 404 is a definitive "no", not an error.
func (c *CustomerClient) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	url := fmt.Sprintf("%s/api/customers/%d/exists", c.baseURL, customerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create customer service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call customer service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Exists bool `json:"exists"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("failed to decode customer service response: %w", err)
		}
		return body.Exists, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("customer service returned status %d", resp.StatusCode)
	}
}
