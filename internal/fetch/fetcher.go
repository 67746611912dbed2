package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// fetch errors
var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrMissingLocation  = errors.New("redirect response without Location header")
	ErrSizeExceeded     = errors.New("response body exceeds size limit")
)

// StatusError is returned for non-redirect, non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// defaults for the fetcher, overridable through Options
const (
	DefaultMaxRedirects = 5
	DefaultMaxBodySize  = 5 * 1024 * 1024
	DefaultTimeout      = 15 * time.Second
)

// Options configures a Fetcher.
type Options struct {
	MaxRedirects int
	Timeout      time.Duration
	UserAgent    string
}

// Fetcher performs outbound GETs with the validator applied to the initial URL
// and to every redirect target. Redirect following is disabled at the client
// level so each 3xx hop passes through validation before it is requested.
type Fetcher struct {
	client    *http.Client
	validator *Validator
	opts      Options
	log       zerolog.Logger
}

// NewFetcher creates a fetcher bound to the given validator.
func NewFetcher(validator *Validator, opts Options, log zerolog.Logger) *Fetcher {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "coursekit-importer/1.0"
	}
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			// no ambient proxy: a proxy would make requests on our behalf and
			// sidestep the address validation entirely
			Proxy:               nil,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Fetcher{client: client, validator: validator, opts: opts, log: log}
}

// Get fetches the URL and returns up to maxBytes of body. It validates the
// initial URL and each redirect target, follows at most MaxRedirects hops and
// aborts as soon as the streamed body exceeds maxBytes.
func (f *Fetcher) Get(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	body, _, err := f.GetWithType(ctx, rawURL, maxBytes)
	return body, err
}

// redirectTarget resolves the Location header against the request URL, so
// relative redirects work the same as absolute ones.
func (f *Fetcher) redirectTarget(resp *http.Response) (string, error) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", ErrMissingLocation
	}
	target, err := resp.Request.URL.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("invalid redirect target %q: %w", loc, err)
	}
	return target.String(), nil
}

func (f *Fetcher) readBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrSizeExceeded, resp.ContentLength, maxBytes)
	}

	// read one byte past the limit to tell "exactly at the limit" from "over it"
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: body larger than %d bytes", ErrSizeExceeded, maxBytes)
	}
	return body, nil
}

// GetWithType is Get plus the response Content-Type of the final hop, used by
// the image pipeline to pre-filter obviously wrong payloads.
func (f *Fetcher) GetWithType(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	current := rawURL
	for hop := 0; ; hop++ {
		if hop > f.opts.MaxRedirects {
			return nil, "", fmt.Errorf("%w: gave up after %d hops", ErrTooManyRedirects, f.opts.MaxRedirects)
		}
		if err := f.validator.Validate(ctx, current); err != nil {
			return nil, "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, http.NoBody)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,image/*,*/*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			next, rErr := f.redirectTarget(resp)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			if rErr != nil {
				return nil, "", rErr
			}
			f.log.Debug().Str("from", current).Str("to", next).Int("hop", hop+1).Msg("following redirect")
			current = next
			continue
		}

		contentType := resp.Header.Get("Content-Type")
		body, err := f.readBody(resp, maxBytes)
		_ = resp.Body.Close()
		return body, contentType, err
	}
}
