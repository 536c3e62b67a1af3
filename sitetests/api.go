package sitetests

import (
	"context"
	"fmt"

	"github.com/launchdarkly/sample-site-tests/config"
	"github.com/launchdarkly/sample-site-tests/deployer"
	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/harness"
	"github.com/launchdarkly/sample-site-tests/prober"
	"github.com/launchdarkly/sample-site-tests/servicedef"
)

// Environment is everything the suite needs to deploy a site.
type Environment struct {
	Config *config.Config
	// Context, if set, stops all deployments when it is cancelled.
	Context context.Context
	// Deployer, if set, is used instead of a ProcessDeployer built from Config.
	Deployer deployer.Deployer
	// Logger, if set, receives all debug output as it happens, in addition to the output
	// captured for each test.
	Logger framework.Logger
}

// T represents a test or subtest in the site test suite.
//
// It implements the same basic functionality as Go's testing.T, outside of the Go test
// runner, so the assert and require packages can be used with it. It also knows how to
// deploy the site with a given runtime flavor.
type T struct {
	context *framework.Context
	env     *Environment
	flavor  deployer.RuntimeFlavor
	baseURL string
}

func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest with the same runtime flavor.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env, flavor: t.flavor, baseURL: t.baseURL})
	})
}

func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) logger() framework.Logger {
	if t.env.Logger == nil {
		return t.context.DebugLogger()
	}
	return teeLogger{t.context.DebugLogger(), framework.PrefixedLogger(t.env.Logger, fmt.Sprintf("[%s] ", t.context.ID()))}
}

// Runner returns a harness.Runner that logs to this test. maxAttempts overrides the
// configured retry limit if it is defined.
func (t *T) Runner(maxAttempts int) *harness.Runner {
	cfg := t.env.Config
	logger := t.logger()

	policy := cfg.RetryPolicy()
	if maxAttempts > 0 {
		policy.MaxAttempts = maxAttempts
	}
	p := prober.New(policy, logger)
	p.AttemptTimeout = cfg.Retry.AttemptTimeout

	d := t.env.Deployer
	if d == nil {
		d = deployer.NewProcessDeployer(cfg.Launcher(), logger)
	}
	return harness.NewRunner(harness.Config{
		ApplicationPath: cfg.Site.ApplicationPath,
		StartDir:        cfg.Site.StartDir,
		Marker:          cfg.Site.Marker,
		ProjectExt:      cfg.Site.ProjectExt,
		Deployer:        d,
		Prober:          p,
		Logger:          logger,
	})
}

// Params returns the parameters for deploying the site with this test's flavor and
// requesting it with locale.
func (t *T) Params(locale string) harness.RunParams {
	cfg := t.env.Config
	return harness.RunParams{
		RuntimeFlavor:       t.flavor,
		RuntimeArchitecture: deployer.ArchitectureX64,
		BaseURL:             t.baseURL,
		EnvironmentName:     cfg.Site.EnvironmentName,
		Locale:              locale,
		StartupTimeout:      cfg.Deploy.StartupTimeout,
		ExtraEnv:            map[string]string{servicedef.EnvResourcesPath: cfg.Site.ResourcesPath},
	}
}

// Context is the context for deployments made by this test.
func (t *T) Context() context.Context {
	parent := t.env.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	t.context.Defer(cancel)
	return ctx
}

type teeLogger []framework.Logger

func (l teeLogger) Printf(message string, args ...interface{}) {
	s := fmt.Sprintf(message, args...)
	for _, target := range l {
		target.Printf("%s", s)
	}
}
