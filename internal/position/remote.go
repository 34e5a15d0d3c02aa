package position

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"SignalScreener/internal/model"
)

// RemoteBook reads position state from an HTTP verification endpoint.
type RemoteBook struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRemoteBook creates a RemoteBook with optional proxy support.
func NewRemoteBook(baseURL, apiKey, proxyURL string) *RemoteBook {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RemoteBook{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (r *RemoteBook) Name() string { return "remote" }

// Lookup asks verifyData for the state of symbol at the close of prevDate,
// which is the position carried into tradeDate. The endpoint answers with a
// list; an empty list means flat. Without a prior bar the symbol is flat.
func (r *RemoteBook) Lookup(ctx context.Context, symbol string, _, prevDate time.Time) (*model.Position, error) {
	if prevDate.IsZero() {
		return nil, nil
	}
	q := url.Values{}
	q.Set("TradeDay", prevDate.Format(model.DateLayout))
	q.Set("Code", symbol)
	q.Set("verifyType", "signal")
	endpoint := fmt.Sprintf("%s/verifyData?%s", r.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if r.APIKey != "" {
		req.Header.Set("x-api-key", r.APIKey)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("position lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("position lookup: status %d, body: %s", resp.StatusCode, string(body))
	}

	var entries []model.BookEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	e := entries[0]
	switch e.Status {
	case model.StatusFlat, model.StatusInPosition:
	default:
		return nil, fmt.Errorf("position lookup %s: unknown status %q", symbol, e.Status)
	}
	return toPosition(symbol, &e)
}
