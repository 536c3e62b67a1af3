package harness

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/sample-site-tests/deployer"
	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/locator"
	"github.com/launchdarkly/sample-site-tests/prober"
	"github.com/launchdarkly/sample-site-tests/servicedef"
	"github.com/launchdarkly/sample-site-tests/verifier"
)

const (
	testMarker  = "Sample.sln"
	testAppPath = "samples/site"
)

var headings = map[string]string{"fr-FR": "Bonjour"}

// siteHandler behaves like the sample site: it renders a heading for the locale cookie.
func siteHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		heading := "Hello"
		if c, err := r.Cookie(servicedef.DefaultCookieName); err == nil {
			if _, uic, err := servicedef.ParseLocaleCookieValue(c.Value); err == nil && headings[uic] != "" {
				heading = headings[uic]
			}
		}
		_, _ = w.Write([]byte("<html><body>" + verifier.Heading(heading) + "</body></html>"))
	})
}

// recordingDeployer wraps another Deployer and remembers what happened to its deployments.
type recordingDeployer struct {
	target     deployer.Deployer
	deployErr  error
	closeErr   error
	killEarly  bool
	lock       sync.Mutex
	params     []deployer.DeploymentParameters
	deployed   []deployer.Deployment
	closeCalls int
}

type recordedDeployment struct {
	deployer.Deployment
	owner *recordingDeployer
}

func (r *recordingDeployer) Deploy(ctx context.Context, params deployer.DeploymentParameters) (deployer.Deployment, error) {
	r.lock.Lock()
	r.params = append(r.params, params)
	r.lock.Unlock()
	if r.deployErr != nil {
		return nil, r.deployErr
	}
	d, err := r.target.Deploy(ctx, params)
	if err != nil {
		return nil, err
	}
	r.lock.Lock()
	r.deployed = append(r.deployed, d)
	r.lock.Unlock()
	if r.killEarly {
		time.AfterFunc(time.Millisecond*100, func() { _ = d.Close() })
	}
	return &recordedDeployment{Deployment: d, owner: r}, nil
}

func (d *recordedDeployment) Close() error {
	d.owner.lock.Lock()
	d.owner.closeCalls++
	d.owner.lock.Unlock()
	err := d.Deployment.Close()
	if d.owner.closeErr != nil {
		return d.owner.closeErr
	}
	return err
}

func (r *recordingDeployer) allClosed(t *testing.T) {
	r.lock.Lock()
	defer r.lock.Unlock()
	assert.Equal(t, len(r.deployed), r.closeCalls, "every deployment should have been closed")
	for _, d := range r.deployed {
		select {
		case <-d.Done():
		default:
			assert.Fail(t, "deployment is still running")
		}
		u, err := url.Parse(d.BaseURL())
		require.NoError(t, err)
		port, _ := strconv.Atoi(u.Port())
		assert.True(t, deployer.PortAvailable(port), "port %d should have been released", port)
	}
}

func projectTree(t *testing.T) string {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, testMarker), nil, 0644))
	start := filepath.Join(root, "test", "functional")
	require.NoError(t, os.MkdirAll(start, 0755))
	return start
}

type fixture struct {
	runner      *Runner
	deployer    *recordingDeployer
	transitions []State
	logger      framework.CapturingLogger
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	f := &fixture{
		deployer: &recordingDeployer{target: &deployer.HandlerDeployer{Handler: handler}},
	}
	f.runner = NewRunner(Config{
		ApplicationPath: testAppPath,
		StartDir:        projectTree(t),
		Marker:          testMarker,
		Deployer:        f.deployer,
		Prober: prober.New(prober.RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
		}, nil),
		Logger: &f.logger,
		OnTransition: func(from, to State) {
			f.transitions = append(f.transitions, to)
		},
	})
	return f
}

func frenchParams() RunParams {
	return RunParams{
		BaseURL:         "http://localhost:0/",
		EnvironmentName: "Development",
		Locale:          "fr-FR",
	}
}

func TestRunAndVerifyResponseHeading(t *testing.T) {
	f := newFixture(t, siteHandler())

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), frenchParams(), "<h1>Bonjour</h1>")
	require.NoError(t, err)

	assert.Equal(t, []State{StateResolving, StateDeploying, StateProbing, StateVerifying, StatePassed}, f.transitions)
	f.deployer.allClosed(t)
}

func TestDeploymentParametersComeFromProjectAndParams(t *testing.T) {
	f := newFixture(t, siteHandler())
	params := frenchParams()
	params.RuntimeFlavor = deployer.RuntimeFlavorLegacy
	params.ExtraEnv = map[string]string{"A": "1"}

	_, err := f.runner.RunAndGetResponse(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, f.deployer.params, 1)
	p := f.deployer.params[0]
	start := f.runner.config.StartDir
	root := filepath.Dir(filepath.Dir(start))
	assert.Equal(t, locator.ProjectFile(root, testAppPath, DefaultProjectExt), p.ApplicationPath)
	assert.Equal(t, filepath.Join(root, "samples", "site"), p.WorkingDirectory)
	assert.Equal(t, deployer.RuntimeFlavorLegacy, p.RuntimeFlavor)
	assert.Equal(t, deployer.ServerKindHTTP, p.ServerKind)
	assert.Equal(t, "Development", p.EnvironmentName)
	assert.Equal(t, "http://localhost:0/", p.BaseURL)
	assert.Equal(t, map[string]string{"A": "1"}, p.ExtraEnv)
}

func TestUnknownLocaleFallsBackToDefaultHeadingEveryTime(t *testing.T) {
	f := newFixture(t, siteHandler())
	params := frenchParams()
	params.Locale = "xx-XX"

	first, err := f.runner.RunAndGetResponse(context.Background(), params)
	require.NoError(t, err)
	assert.NoError(t, verifier.VerifyHeading(first, "Hello"))

	second, err := f.runner.RunAndGetResponse(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	f.deployer.allClosed(t)
}

func TestUICultureIsSentSeparately(t *testing.T) {
	f := newFixture(t, siteHandler())
	params := frenchParams()
	params.Locale = "en-US"
	params.UICulture = "fr-FR"

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), params, "<h1>Bonjour</h1>")
	assert.NoError(t, err)
}

func TestRunAndVerifyResponseExact(t *testing.T) {
	f := newFixture(t, siteHandler())
	expected := "<html><body><h1>Bonjour</h1></body></html>"
	assert.NoError(t, f.runner.RunAndVerifyResponse(context.Background(), frenchParams(), expected))

	err := f.runner.RunAndVerifyResponse(context.Background(), frenchParams(), "<h1>Bonjour</h1>")
	var ae *verifier.AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, verifier.KindExact, ae.Kind)
}

func TestVerificationFailureStillStopsSite(t *testing.T) {
	f := newFixture(t, siteHandler())

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), frenchParams(), "<h1>Guten Tag</h1>")
	var ae *verifier.AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, err.Error(), "<h1>Bonjour</h1>", "error should include the actual body")

	assert.Equal(t, []State{StateResolving, StateDeploying, StateProbing, StateVerifying, StateFailed}, f.transitions)
	f.deployer.allClosed(t)
}

func TestLocatorFailureStopsBeforeDeploying(t *testing.T) {
	f := newFixture(t, siteHandler())
	f.runner.config.Marker = "no-such-marker-7f3a1c.sln"

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), frenchParams(), "<h1>Bonjour</h1>")
	var nf *locator.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Empty(t, f.deployer.params)
	assert.Equal(t, []State{StateResolving, StateFailed}, f.transitions)
}

func TestDeployFailure(t *testing.T) {
	f := newFixture(t, siteHandler())
	f.deployer.deployErr = &deployer.TimeoutError{URL: "http://localhost:1/", Timeout: time.Second}

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), frenchParams(), "<h1>Bonjour</h1>")
	var te *deployer.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []State{StateResolving, StateDeploying, StateFailed}, f.transitions)
}

func TestProbeFailureStopsSite(t *testing.T) {
	f := newFixture(t, httphelpers.HandlerWithStatus(503))

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), frenchParams(), "<h1>Bonjour</h1>")
	var pf *prober.ProbeFailedError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, 3, pf.Attempts)
	assert.Equal(t, []State{StateResolving, StateDeploying, StateProbing, StateFailed}, f.transitions)
	f.deployer.allClosed(t)
}

func TestSiteStoppingDuringProbe(t *testing.T) {
	hang := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	f := newFixture(t, hang)
	f.deployer.killEarly = true

	err := f.runner.RunAndVerifyResponseHeading(context.Background(), frenchParams(), "<h1>Bonjour</h1>")
	assert.True(t, errors.Is(err, prober.ErrDeploymentTerminated), "unexpected error: %v", err)
	f.deployer.allClosed(t)
}

func TestCleanupErrorIsReportedWithProbeFailure(t *testing.T) {
	f := newFixture(t, httphelpers.HandlerWithStatus(404))
	f.deployer.closeErr = errors.New("could not stop")

	_, err := f.runner.RunAndGetResponse(context.Background(), frenchParams())
	var me *multierror.Error
	require.True(t, errors.As(err, &me), "unexpected error: %v", err)
	assert.Len(t, me.Errors, 2)
	var pf *prober.ProbeFailedError
	assert.True(t, errors.As(err, &pf))
	assert.Contains(t, err.Error(), "could not stop")
}

func TestCleanupErrorAloneFailsRun(t *testing.T) {
	f := newFixture(t, siteHandler())
	f.deployer.closeErr = errors.New("could not stop")

	_, err := f.runner.RunAndGetResponse(context.Background(), frenchParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not stop")
	assert.Equal(t, StateFailed, f.transitions[len(f.transitions)-1])
}

func TestStateTransitionsAreLogged(t *testing.T) {
	f := newFixture(t, siteHandler())
	_, err := f.runner.RunAndGetResponse(context.Background(), frenchParams())
	require.NoError(t, err)

	var sawProbing bool
	for _, m := range f.logger.Output() {
		if m.Message == "[http:modern:x64:fr-FR] deploying -> probing" {
			sawProbing = true
		}
	}
	assert.True(t, sawProbing)
}

func TestTerminalStateCannotChange(t *testing.T) {
	s := &runState{logger: framework.NullLogger()}
	s.to(StateResolving)
	s.to(StateFailed)
	assert.Panics(t, func() { s.to(StateProbing) })
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
