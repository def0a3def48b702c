package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMSGatewayClient sends messages through an HTTP SMS gateway.
type SMSGatewayClient struct {
	URL    string
	APIKey string
	Client *http.Client
}

type smsGatewayRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type smsGatewayResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Token  string `json:"token"`
	Msg    string `json:"msg"`
}

func NewSMSGatewayClient(url, apiKey string) *SMSGatewayClient {
	return &SMSGatewayClient{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to the gateway and returns its reference token.
func (s *SMSGatewayClient) Send(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(smsGatewayRequest{Recipient: to, Message: body})
	if err != nil {
		return "", fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.APIKey))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read sms response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	var gw smsGatewayResponse
	if err := json.Unmarshal(respBody, &gw); err != nil {
		return "", fmt.Errorf("decode sms response: %w", err)
	}
	if gw.Status != "" && gw.Status != "success" {
		return "", fmt.Errorf("sms gateway rejected message: %s", gw.Msg)
	}

	return gw.Token, nil
}
