package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const smsTimeout = 15 * time.Second

// HTTPSMSClient sends SMS through a JSON-over-HTTP gateway.
type HTTPSMSClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewHTTPSMSClient returns a client for the given gateway URL and API key.
func NewHTTPSMSClient(apiKey, baseURL, sender string) *HTTPSMSClient {
	return &HTTPSMSClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: smsTimeout},
	}
}

// Send posts the message to the gateway. phone should be digits only with
// country code. The message body is never logged here.
func (c *HTTPSMSClient) Send(phone, body string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("sms: gateway URL not configured")
	}
	payload := map[string]interface{}{
		"to":      phone,
		"from":    c.Sender,
		"message": body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
