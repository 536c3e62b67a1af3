// Package harness runs a complete check of a site: find the site in the project tree,
// deploy it, request its home page with a locale cookie, and verify the response. The
// deployed site is always stopped before Run returns, whichever step fails.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/launchdarkly/sample-site-tests/deployer"
	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/locator"
	"github.com/launchdarkly/sample-site-tests/prober"
	"github.com/launchdarkly/sample-site-tests/servicedef"
	"github.com/launchdarkly/sample-site-tests/verifier"
)

const (
	DefaultMarker     = "go.mod"
	DefaultProjectExt = ".go"
)

// Config is the part of a run that stays the same for every case.
type Config struct {
	// ApplicationPath is the site's directory relative to the project root.
	ApplicationPath string
	// StartDir is where the search for Marker begins. Defaults to the current directory.
	StartDir string
	// Marker is the file identifying the project root. Defaults to "go.mod".
	Marker string
	// ProjectExt is the extension of the site's project file. Defaults to ".go".
	ProjectExt string
	// Deployer defaults to a ProcessDeployer that builds the site with the go tool.
	Deployer deployer.Deployer
	// Prober defaults to one using the default retry policy.
	Prober *prober.Prober
	Logger framework.Logger
	// OnTransition, if set, is called each time a run changes state.
	OnTransition func(from, to State)
}

// RunParams are the inputs that vary between runs.
type RunParams struct {
	RuntimeFlavor       deployer.RuntimeFlavor
	RuntimeArchitecture deployer.RuntimeArchitecture
	BaseURL             string
	EnvironmentName     string
	Locale              string
	// UICulture defaults to Locale.
	UICulture      string
	StartupTimeout time.Duration
	ExtraEnv       map[string]string
}

func (p RunParams) cookie() servicedef.LocaleCookie {
	if p.UICulture == "" {
		return servicedef.NewLocaleCookie(p.Locale)
	}
	return servicedef.NewLocaleCookieWithUICulture(p.Locale, p.UICulture)
}

type Runner struct {
	config Config
}

func NewRunner(config Config) *Runner {
	if config.Logger == nil {
		config.Logger = framework.NullLogger()
	}
	if config.StartDir == "" {
		config.StartDir = "."
	}
	if config.Marker == "" {
		config.Marker = DefaultMarker
	}
	if config.ProjectExt == "" {
		config.ProjectExt = DefaultProjectExt
	}
	if config.Deployer == nil {
		config.Deployer = deployer.NewProcessDeployer(deployer.GoLauncher{}, config.Logger)
	}
	if config.Prober == nil {
		config.Prober = prober.New(prober.DefaultRetryPolicy(), config.Logger)
	}
	return &Runner{config: config}
}

// RunAndGetResponse deploys the site, requests its home page, stops the site, and
// returns the response body.
func (r *Runner) RunAndGetResponse(ctx context.Context, params RunParams) (string, error) {
	return r.run(ctx, params, nil)
}

// RunAndVerifyResponse fails unless the response body is exactly expected.
func (r *Runner) RunAndVerifyResponse(ctx context.Context, params RunParams, expected string) error {
	_, err := r.run(ctx, params, func(body string) error {
		return verifier.VerifyExact(body, expected)
	})
	return err
}

// RunAndVerifyResponseHeading fails unless the response body contains expectedHeading,
// such as "<h1>Bonjour</h1>".
func (r *Runner) RunAndVerifyResponseHeading(ctx context.Context, params RunParams, expectedHeading string) error {
	_, err := r.run(ctx, params, func(body string) error {
		return verifier.VerifyContains(body, expectedHeading)
	})
	return err
}

func (r *Runner) run(ctx context.Context, params RunParams, verify func(string) error) (string, error) {
	logger := framework.PrefixedLogger(r.config.Logger, fmt.Sprintf("[%s:%s:%s:%s] ",
		deployer.ServerKindHTTP, params.RuntimeFlavor, params.RuntimeArchitecture, params.Locale))
	s := &runState{logger: logger, observer: r.config.OnTransition}

	body, err := r.deployAndProbe(ctx, params, s, logger)
	if err == nil {
		logger.Printf("Response text: %s", body)
		if verify != nil {
			s.to(StateVerifying)
			err = verify(body)
		}
	}
	if err != nil {
		s.to(StateFailed)
		return body, err
	}
	s.to(StatePassed)
	return body, nil
}

func (r *Runner) deployAndProbe(ctx context.Context, params RunParams, s *runState, logger framework.Logger) (body string, err error) {
	s.to(StateResolving)
	project, err := locator.Resolve(r.config.StartDir, r.config.Marker, r.config.ApplicationPath, r.config.ProjectExt)
	if err != nil {
		return "", err
	}

	s.to(StateDeploying)
	dep, err := r.config.Deployer.Deploy(ctx, deployer.DeploymentParameters{
		ApplicationPath:     project.File,
		ServerKind:          deployer.ServerKindHTTP,
		RuntimeFlavor:       params.RuntimeFlavor,
		RuntimeArchitecture: params.RuntimeArchitecture,
		BaseURL:             params.BaseURL,
		EnvironmentName:     params.EnvironmentName,
		WorkingDirectory:    project.Dir,
		StartupTimeout:      params.StartupTimeout,
		ExtraEnv:            params.ExtraEnv,
	})
	if err != nil {
		return "", errors.Wrapf(err, "deploying %s", project.File)
	}
	defer func() {
		if closeErr := dep.Close(); closeErr != nil {
			logger.Printf("Failed to stop site: %s", closeErr)
			closeErr = errors.Wrapf(closeErr, "stopping %s", project.File)
			if err == nil {
				err = closeErr
			} else {
				err = multierror.Append(err, closeErr)
			}
		}
	}()

	s.to(StateProbing)
	body, err = r.config.Prober.Probe(ctx, dep.BaseURL(), params.cookie(), dep.Done())
	if err != nil {
		return "", errors.Wrapf(err, "probing %s", dep.BaseURL())
	}
	return body, nil
}
