package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/sample-site-tests/deployer"
	"github.com/launchdarkly/sample-site-tests/prober"
)

func chdir(t *testing.T, dir string) {
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "samples/localizationsample", cfg.Site.ApplicationPath)
	assert.Equal(t, "go.mod", cfg.Site.Marker)
	assert.Equal(t, "My/Resources", cfg.Site.ResourcesPath)
	assert.Equal(t, 5080, cfg.Deploy.BasePort)
	assert.Equal(t, time.Second*30, cfg.Deploy.StartupTimeout)
	assert.Equal(t, prober.DefaultRetryPolicy(), cfg.RetryPolicy())
	assert.Equal(t, time.Second*10, cfg.Retry.AttemptTimeout)

	flavors, err := cfg.Flavors()
	require.NoError(t, err)
	assert.Equal(t, []deployer.RuntimeFlavor{deployer.RuntimeFlavorLegacy, deployer.RuntimeFlavorModern}, flavors)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site:
  applicationPath: web/site
  environmentName: Staging
deploy:
  basePort: 6000
  startupTimeout: 5s
  runtimeFlavors: [modern]
  command: [./site, --verbose]
retry:
  maxAttempts: 3
  initialDelay: 10ms
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "web/site", cfg.Site.ApplicationPath)
	assert.Equal(t, "Staging", cfg.Site.EnvironmentName)
	assert.Equal(t, "go.mod", cfg.Site.Marker)
	assert.Equal(t, time.Second*5, cfg.Deploy.StartupTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Millisecond*10, cfg.Retry.InitialDelay)
	assert.Equal(t, prober.DefaultMaxDelay, cfg.Retry.MaxDelay)
	assert.Equal(t, deployer.CommandLauncher{Path: "./site", Args: []string{"--verbose"}}, cfg.Launcher())

	u, err := cfg.BaseURL(1)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:6001/", u)
}

func TestConfigFileInCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sitetests.yaml"), []byte("site:\n  marker: Sample.sln\n"), 0644))
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Sample.sln", cfg.Site.Marker)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deploy:\n  basePort: 6000\n"), 0644))
	t.Setenv("SITETESTS_DEPLOY_BASEPORT", "7000")
	t.Setenv("SITETESTS_SITE_ENVIRONMENTNAME", "Production")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Deploy.BasePort)
	assert.Equal(t, "Production", cfg.Site.EnvironmentName)
}

func TestMissingExplicitFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Config{
		Deploy: DeployConfig{BasePort: 70000, RuntimeFlavors: []string{"classic"}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, s := range []string{"site.applicationPath", "site.marker", "basePort", "classic", "maxAttempts"} {
		assert.Contains(t, err.Error(), s)
	}
}

func TestFreePortWhenBasePortIsZero(t *testing.T) {
	cfg := Config{Deploy: DeployConfig{Host: "localhost"}}
	u, err := cfg.BaseURL(0)
	require.NoError(t, err)
	assert.NotEqual(t, "http://localhost:0/", u)
	assert.Regexp(t, `^http://localhost:\d+/$`, u)
}

func TestDefaultLauncherBuildsWithGo(t *testing.T) {
	cfg := Config{Deploy: DeployConfig{GoCommand: "go1.24"}}
	assert.Equal(t, deployer.GoLauncher{GoCommand: "go1.24"}, cfg.Launcher())
}
