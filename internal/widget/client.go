package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// nonceHeader carries the anti-forgery token on every proxy call.
const nonceHeader = "X-Booking-Nonce"

// ProxyClient calls the widget's two proxy endpoints. It implements API and
// the calendar's availability probe.
type ProxyClient struct {
	baseURL    string
	nonce      string
	httpClient *http.Client
}

// NewProxyClient creates a client for the proxy at baseURL, e.g.
// "https://example.org/checkfront/v1". The nonce is sent on every request.
func NewProxyClient(baseURL, nonce string) *ProxyClient {
	return &ProxyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		nonce:   nonce,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ItemRated fetches rated availability. Dates are accepted as "YYYY-MM-DD"
// and sent compact, the way the date pickers hand them over.
func (p *ProxyClient) ItemRated(ctx context.Context, itemID, date, endDate string, qty int) (*Rated, error) {
	q := url.Values{}
	q.Set("item_id", itemID)
	q.Set("date", compactDate(date))
	q.Set("end_date", compactDate(endDate))
	q.Set("qty", strconv.Itoa(qty))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/item-rated?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("widget: build item-rated request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("widget: item-rated call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("widget: read item-rated response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("widget: item-rated HTTP %d", resp.StatusCode)
	}
	return ParseRated(body)
}

// CreateBooking submits the booking payload and decodes the result.
func (p *ProxyClient) CreateBooking(ctx context.Context, submission BookingSubmission) (map[string]any, error) {
	tos := 0
	if submission.TOSAgree {
		tos = 1
	}
	payload, err := json.Marshal(map[string]any{
		"slip":               submission.Slip,
		"customer_tos_agree": tos,
		"form":               submission.Form,
	})
	if err != nil {
		return nil, fmt.Errorf("widget: marshal booking payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/create-booking", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("widget: build create-booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("widget: create-booking call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("widget: read create-booking response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("widget: create-booking HTTP %d", resp.StatusCode)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("widget: decode create-booking response: %w", err)
	}
	return result, nil
}

func (p *ProxyClient) setHeaders(req *http.Request) {
	if p.nonce != "" {
		req.Header.Set(nonceHeader, p.nonce)
	}
}

func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}
