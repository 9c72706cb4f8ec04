package utils

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const africasTalkingURL = "https://api.africastalking.com/version1/messaging"

// SMSClient sends text messages through Africa's Talking.
type SMSClient struct {
	Username string
	APIKey   string
	BaseURL  string
	HTTP     *http.Client
}

func NewSMSClient(username, apiKey string) *SMSClient {
	return &SMSClient{
		Username: username,
		APIKey:   apiKey,
		BaseURL:  africasTalkingURL,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SMSClient) Configured() bool {
	return c.Username != "" && c.APIKey != ""
}

func (c *SMSClient) Send(ctx context.Context, message string, recipients []string) error {
	if c.Username == "" {
		return fmt.Errorf("africa's talking username not set")
	}
	if c.APIKey == "" {
		return fmt.Errorf("africa's talking API key not set")
	}

	data := url.Values{}
	data.Set("username", c.Username)
	data.Set("to", strings.Join(recipients, ","))
	data.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apiKey", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send SMS: status code %d", resp.StatusCode)
	}
	return nil
}
