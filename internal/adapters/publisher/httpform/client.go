// Package httpform delivers serialized records to the collector as a form POST.
package httpform

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/formmetrics/internal/ports"
)

// FieldName is the form field carrying the JSON record.
const FieldName = "json"

// Client posts records to a fixed collector URL. It makes exactly one
// attempt per record.
type Client struct {
	target *url.URL
	hc     *http.Client
}

var _ ports.Transport = (*Client)(nil)

// StatusError is returned when the collector answers anything but 200.
type StatusError struct {
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector status: %s", e.Status)
}

// New validates submitURL and returns a Client. A nil hc gets a client with a
// 10s timeout.
func New(submitURL string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	u, err := url.Parse(strings.TrimSpace(submitURL))
	if err != nil {
		return nil, fmt.Errorf("parse submit url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("submit url %q: scheme must be http or https", submitURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("submit url %q: missing host", submitURL)
	}
	return &Client{target: u, hc: hc}, nil
}

// URL returns the collector address.
func (c *Client) URL() string { return c.target.String() }

// Send posts payload as the "json" field of an urlencoded form, bypassing
// caches along the way.
func (c *Client) Send(ctx context.Context, payload []byte) (retErr error) {
	req, err := c.newFormRequest(ctx, payload)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()

	if err := drainAndDiscard(resp); err != nil {
		return err
	}
	return checkHTTPStatus(resp)
}

func (c *Client) newFormRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	body := url.Values{FieldName: {string(payload)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target.String(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	return req, nil
}

func drainAndDiscard(resp *http.Response) error {
	var r io.Reader = resp.Body
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("bad gzip: %w", err)
		}
		defer func() {
			_ = gr.Close()
		}()
		r = gr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return fmt.Errorf("drain body: %w", err)
	}
	return nil
}

func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
