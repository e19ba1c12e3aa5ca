// Package payments notifies the payment sink when a listener downloads a song.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Notification is one artist's share of a download.
type Notification struct {
	ArtistID       string `json:"artist_id"`
	ArtistUserID   string `json:"artist_user_id"`
	SongID         string `json:"song_id"`
	ListenerUserID string `json:"user_id"`
	Amount         string `json:"amount"`
}

// PaymentNotifier delivers notifications to the payment sink.
type PaymentNotifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Prices maps an artist subscription level to a per-download amount.
type Prices map[int]string

// DefaultPrices is the fixed ladder; level 0 is free.
func DefaultPrices() Prices {
	return Prices{
		1: "0.000001",
		2: "0.000002",
		3: "0.000005",
	}
}

// Price returns the amount for level and whether downloads at that level are paid.
func (p Prices) Price(level int) (string, bool) {
	amount, ok := p[level]
	if !ok || amount == "" {
		return "", false
	}
	return amount, true
}

// HTTPNotifier posts notifications as JSON to {baseURL}/payments.
type HTTPNotifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPNotifier targets baseURL. A nil client gets a 10s timeout.
func NewHTTPNotifier(baseURL, apiKey string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPNotifier{
		endpoint: strings.TrimRight(baseURL, "/") + "/payments",
		apiKey:   apiKey,
		client:   client,
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("x-api-key", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send payment: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payment sink returned %d", resp.StatusCode)
	}
	return nil
}

// Discard drops every notification. Used when no payment sink is configured.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }
