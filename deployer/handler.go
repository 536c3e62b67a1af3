package deployer

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"

	"github.com/launchdarkly/sample-site-tests/framework"
)

// HandlerDeployer serves an http.Handler from the current process, listening on the host
// and port of the base URL. A port of 0 picks any free port, and the Deployment's BaseURL
// reports the real one.
type HandlerDeployer struct {
	Handler http.Handler
	Logger  framework.Logger
}

type handlerDeployment struct {
	server  *http.Server
	baseURL string
	done    chan struct{}
	closing sync.Once
	closed  error
}

func (d *HandlerDeployer) Deploy(ctx context.Context, params DeploymentParameters) (Deployment, error) {
	logger := d.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}
	u, _ := url.Parse(params.BaseURL)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", u.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", u.Host)
	}
	if u.Port() == "0" {
		_, port, _ := net.SplitHostPort(listener.Addr().String())
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	h := &handlerDeployment{
		server:  &http.Server{Handler: d.Handler},
		baseURL: u.String(),
		done:    make(chan struct{}),
	}
	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Printf("Site server stopped unexpectedly: %s", err)
		}
		close(h.done)
	}()
	logger.Printf("Serving site in-process at %s", h.baseURL)
	return h, nil
}

func (h *handlerDeployment) BaseURL() string {
	return h.baseURL
}

func (h *handlerDeployment) Done() <-chan struct{} {
	return h.done
}

func (h *handlerDeployment) Close() error {
	h.closing.Do(func() {
		h.closed = h.server.Close()
		<-h.done
	})
	return h.closed
}
