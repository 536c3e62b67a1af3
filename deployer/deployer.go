// Package deployer starts a site under test and stops it again.
//
// A Deployer is anything that can make a site available at a base URL. ProcessDeployer
// runs the site as a separate OS process; HandlerDeployer serves an http.Handler from the
// current process. Callers should always close the returned Deployment, typically with
// defer, so that the site is stopped on every exit path.
package deployer

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	readinessInterval     = time.Millisecond * 50
	readinessQueryTimeout = time.Second
)

type Deployer interface {
	// Deploy starts the site and returns once it is accepting requests. If it returns an
	// error, anything it started has already been stopped.
	Deploy(ctx context.Context, params DeploymentParameters) (Deployment, error)
}

// Deployment is a running site.
type Deployment interface {
	BaseURL() string
	// Done is closed when the site stops, whether or not Close was called.
	Done() <-chan struct{}
	// Close stops the site and waits for it to exit. It is safe to call more than once.
	Close() error
}

// TimeoutError means the site did not start accepting requests in time.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("site at %s did not become ready within %s; last error was: %v", e.URL, e.Timeout, e.Last)
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

// ExitedError means the site process exited before it started accepting requests.
type ExitedError struct {
	Err error
}

func (e *ExitedError) Error() string {
	if e.Err == nil {
		return "site process exited before becoming ready"
	}
	return fmt.Sprintf("site process exited before becoming ready: %s", e.Err)
}

func (e *ExitedError) Unwrap() error {
	return e.Err
}

var errExited = &ExitedError{}

// awaitReady polls url until it returns any HTTP response. It gives up when the timeout
// elapses, when ctx is cancelled, or when exited is closed (returning errExited).
func awaitReady(ctx context.Context, url string, timeout time.Duration, exited <-chan struct{}) error {
	client := &http.Client{Timeout: readinessQueryTimeout}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(readinessInterval)
	defer ticker.Stop()
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return errExited
		case <-deadline.C:
			return &TimeoutError{URL: url, Timeout: timeout, Last: lastErr}
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
				return nil
			}
			lastErr = err
		}
	}
}
