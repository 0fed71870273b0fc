// Package google is the Places API adapter. Place Details responses embed at
// most five reviews per place; that bound comes from the API, not from us.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
	"github.com/danielcmadeley/flex-living-sub001/internal/normalize"
)

type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 15 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// FetchPlaceReviews returns the place's display name and raw reviews.
func (c *Client) FetchPlaceReviews(ctx context.Context, placeID string) (string, []normalize.PlaceReview, error) {
	q := url.Values{
		"place_id": {placeID},
		"fields":   {"name,reviews"},
		"key":      {c.key},
	}
	u := c.base + "/details/json?" + q.Encode()

	var out struct {
		Status string `json:"status"`
		Result struct {
			Name    string                  `json:"name"`
			Reviews []normalize.PlaceReview `json:"reviews"`
		} `json:"result"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return "", nil, err
	}
	// Places signals most failures in-band with a 200 and a status string
	switch out.Status {
	case "OK":
		return out.Result.Name, out.Result.Reviews, nil
	case "NOT_FOUND", "ZERO_RESULTS", "INVALID_REQUEST":
		return "", nil, domain.ErrUpstreamNotFound
	case "REQUEST_DENIED":
		return "", nil, domain.ErrUpstreamDenied
	default:
		return "", nil, fmt.Errorf("places status %s", out.Status)
	}
}

// get performs a rate-limited GET with a couple of retries on transient
// failures. Places has no Retry-After contract worth honoring; a short
// growing pause is enough.
func (c *Client) get(ctx context.Context, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			t := time.NewTimer(time.Duration(i) * 300 * time.Millisecond)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "flex-living-reviews/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err
		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrUpstreamNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrUpstreamDenied
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			resp.Body.Close()
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			continue
		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}
