package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig holds the gateway credentials.
type SMSConfig struct {
	Endpoint string
	APIKey   string
	Sender   string
	Password string
}

// SMSClient talks to the SMS gateway over its form-encoded API.
type SMSClient struct {
	cfg    SMSConfig
	client *http.Client
}

func NewSMSClient(cfg SMSConfig) *SMSClient {
	return &SMSClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type smsResponse struct {
	Status string `json:"status"`
}

// Send posts one message. The gateway reports success in the response body,
// not the HTTP status alone.
func (s *SMSClient) Send(phone, message string) error {
	form := url.Values{}
	form.Set("api_key", s.cfg.APIKey)
	form.Set("password", s.cfg.Password)
	form.Set("sender", s.cfg.Sender)
	form.Set("message", message)
	form.Set("phone", phone)
	form.Set("flag", "short_sms")

	req, err := http.NewRequest(http.MethodPost, s.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var sr smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return fmt.Errorf("sms gateway: decode response: %w", err)
	}
	if sr.Status != "success" {
		return fmt.Errorf("sms gateway: status=%s", sr.Status)
	}
	return nil
}
