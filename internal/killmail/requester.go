package killmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1 << 20

// Requester performs the blocking HTTP fetches the source adapters depend
// on. The identification header is required by most killboard operators.
type Requester struct {
	httpClient *http.Client
	userAgent  string
}

// RequesterOption configures optional requester behavior.
type RequesterOption func(*Requester)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) RequesterOption {
	return func(r *Requester) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithTimeout overrides the default fetch timeout.
func WithTimeout(timeout time.Duration) RequesterOption {
	return func(r *Requester) {
		if timeout > 0 {
			r.httpClient.Timeout = timeout
		}
	}
}

// NewRequester builds a requester that identifies itself with the provided
// User-Agent string.
func NewRequester(userAgent string, opts ...RequesterOption) *Requester {
	requester := &Requester{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  strings.TrimSpace(userAgent),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(requester)
		}
	}
	return requester
}

// Get fetches the URL and surfaces the HTTP status and body unmodified, so
// adapters can apply their own source-specific status handling.
func (r *Requester) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInvalidReference, err, "building source request")
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "executing source request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return resp.StatusCode, nil, pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "reading source response")
	}
	return resp.StatusCode, body, nil
}

// GetJSON fetches the URL and decodes a 200 JSON response into out. Any
// non-success status or undecodable payload maps to a retryable source
// failure.
func (r *Requester) GetJSON(ctx context.Context, rawURL string, out any) error {
	status, body, err := r.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeSourceUnavailable, "source returned unexpected status").
			WithDetails(map[string]any{"status": status})
	}
	if len(body) == 0 {
		return pkgerrors.New(pkgerrors.CodeSourceUnavailable, "source returned an empty payload")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "decoding source payload")
	}
	return nil
}
