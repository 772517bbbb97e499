package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is a wrapper around resty.Client. It embeds *resty.Client to
// expose all of its methods directly.
type HTTPClient struct {
	*resty.Client
}

// HTTPClientOptions configures [NewHTTPClient].
type HTTPClientOptions struct {
	// BaseURL is prefixed to every relative request path.
	BaseURL string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// RetryCount is the number of extra attempts after a failed one.
	RetryCount int
	// RetryWait is the initial backoff; it doubles up to RetryMaxWait.
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// RetryIf decides whether an attempt is retried. When nil, no request
	// is retried regardless of RetryCount.
	RetryIf func(resp *resty.Response, err error) bool
}

// NewHTTPClient creates an independent resty client configured from opts.
//
// Example usage:
//
//	client := utils.NewHTTPClient(utils.HTTPClientOptions{BaseURL: "http://localhost:4100"})
//	resp, err := client.R().Get("/health")
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	client := resty.New()

	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	if opts.RetryCount > 0 && opts.RetryIf != nil {
		wait := opts.RetryWait
		if wait <= 0 {
			wait = 100 * time.Millisecond
		}
		maxWait := opts.RetryMaxWait
		if maxWait < wait {
			maxWait = wait * 8
		}

		client.
			SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(opts.RetryIf)
	}

	return &HTTPClient{Client: client}
}
