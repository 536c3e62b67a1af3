// Package prober makes the HTTP request that checks a deployed site, retrying while the
// site is still starting up or reports a temporary failure.
package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/servicedef"
)

const (
	defaultAttemptTimeout = time.Second * 10
	maxErrorBodyLength    = 500
)

// ErrDeploymentTerminated is returned when the site stopped before a response was received.
var ErrDeploymentTerminated = errors.New("site stopped while it was being probed")

// StatusError is the failure for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP status %d: %s", e.StatusCode, e.Body)
}

// ProbeFailedError is returned when no attempt succeeded. Last is the error from the final
// attempt.
type ProbeFailedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ProbeFailedError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempt(s): %s", e.URL, e.Attempts, e.Last)
}

func (e *ProbeFailedError) Unwrap() error {
	return e.Last
}

type Prober struct {
	Policy RetryPolicy
	// AttemptTimeout limits each request. Defaults to 10s.
	AttemptTimeout time.Duration
	// Transport is used instead of http.DefaultTransport if set.
	Transport http.RoundTripper
	Logger    framework.Logger
}

func New(policy RetryPolicy, logger framework.Logger) *Prober {
	return &Prober{Policy: policy, Logger: logger}
}

// Probe sends a GET request for baseURL with the locale cookie, and returns the response
// body once a request succeeds.
//
// Closing shutdown means the site has stopped: any request in progress is cancelled and
// Probe returns ErrDeploymentTerminated without retrying. Cancelling ctx likewise stops
// Probe and returns the context's error.
func (p *Prober) Probe(
	ctx context.Context,
	baseURL string,
	cookie servicedef.LocaleCookie,
	shutdown <-chan struct{},
) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", err
	}
	jar.SetCookies(u, []*http.Cookie{cookie.HTTPCookie()})

	timeout := p.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	client := &http.Client{Jar: jar, Timeout: timeout, Transport: p.Transport}

	requestCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-shutdown:
			cancel()
		case <-requestCtx.Done():
		}
	}()

	for attempt := 1; ; attempt++ {
		if isClosed(shutdown) {
			return "", ErrDeploymentTerminated
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		body, err := get(requestCtx, client, baseURL)
		if err == nil {
			logger.Printf("Received %d bytes from %s on attempt %d", len(body), baseURL, attempt)
			return body, nil
		}
		if isClosed(shutdown) {
			return "", ErrDeploymentTerminated
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		delay, retry := p.Policy.Next(attempt, err)
		if !retry {
			logger.Printf("Request to %s failed on attempt %d, giving up: %s", baseURL, attempt, err)
			return "", &ProbeFailedError{URL: baseURL, Attempts: attempt, Last: err}
		}
		logger.Printf("Request to %s failed on attempt %d, retrying in %s: %s", baseURL, attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-shutdown:
			timer.Stop()
			return "", ErrDeploymentTerminated
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

func get(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBodyLength {
			data = data[:maxErrorBodyLength]
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return string(data), nil
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
