// Package config loads the settings for a test run from defaults, an optional config file,
// and SITETESTS_* environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/launchdarkly/sample-site-tests/deployer"
	"github.com/launchdarkly/sample-site-tests/prober"
)

const (
	EnvPrefix      = "SITETESTS"
	configFileName = "sitetests"
)

type Config struct {
	Site   SiteConfig   `mapstructure:"site"`
	Deploy DeployConfig `mapstructure:"deploy"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// SiteConfig says where the site is and how it should run.
type SiteConfig struct {
	// ApplicationPath is relative to the directory containing Marker.
	ApplicationPath string `mapstructure:"applicationPath"`
	StartDir        string `mapstructure:"startDir"`
	Marker          string `mapstructure:"marker"`
	ProjectExt      string `mapstructure:"projectExt"`
	EnvironmentName string `mapstructure:"environmentName"`
	// ResourcesPath is passed to the site, relative to its directory.
	ResourcesPath string `mapstructure:"resourcesPath"`
}

type DeployConfig struct {
	Host string `mapstructure:"host"`
	// BasePort is the port of the first deployment; each further flavor uses the next port.
	// Zero picks free ports.
	BasePort       int           `mapstructure:"basePort"`
	StartupTimeout time.Duration `mapstructure:"startupTimeout"`
	// RuntimeFlavors lists the flavors to run every case with.
	RuntimeFlavors []string `mapstructure:"runtimeFlavors"`
	// GoCommand builds the site. Empty means "go".
	GoCommand string `mapstructure:"goCommand"`
	// Command, if set, runs a prebuilt site instead of building it.
	Command []string `mapstructure:"command"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	InitialDelay   time.Duration `mapstructure:"initialDelay"`
	MaxDelay       time.Duration `mapstructure:"maxDelay"`
	Multiplier     float64       `mapstructure:"multiplier"`
	AttemptTimeout time.Duration `mapstructure:"attemptTimeout"`
}

// Load reads the configuration. If configPath is empty, a file called sitetests.yaml (or any
// other extension viper understands) in the current directory is used if it exists.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(configFileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.applicationPath", "samples/localizationsample")
	v.SetDefault("site.startDir", ".")
	v.SetDefault("site.marker", "go.mod")
	v.SetDefault("site.projectExt", ".go")
	v.SetDefault("site.environmentName", "Development")
	v.SetDefault("site.resourcesPath", "My/Resources")
	v.SetDefault("deploy.host", "localhost")
	v.SetDefault("deploy.basePort", 5080)
	v.SetDefault("deploy.startupTimeout", "30s")
	v.SetDefault("deploy.runtimeFlavors", []string{"legacy", "modern"})
	v.SetDefault("deploy.goCommand", "")
	v.SetDefault("deploy.command", []string{})
	v.SetDefault("retry.maxAttempts", prober.DefaultMaxAttempts)
	v.SetDefault("retry.initialDelay", prober.DefaultInitialDelay.String())
	v.SetDefault("retry.maxDelay", prober.DefaultMaxDelay.String())
	v.SetDefault("retry.multiplier", prober.DefaultMultiplier)
	v.SetDefault("retry.attemptTimeout", "10s")
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Site.ApplicationPath == "" {
		result = multierror.Append(result, errors.New("site.applicationPath must be set"))
	}
	if c.Site.Marker == "" {
		result = multierror.Append(result, errors.New("site.marker must be set"))
	}
	if c.Deploy.BasePort < 0 || c.Deploy.BasePort > 65535 {
		result = multierror.Append(result, fmt.Errorf("deploy.basePort %d is out of range", c.Deploy.BasePort))
	}
	if len(c.Deploy.RuntimeFlavors) == 0 {
		result = multierror.Append(result, errors.New("deploy.runtimeFlavors must not be empty"))
	}
	if _, err := c.Flavors(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Retry.MaxAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("retry.maxAttempts must be at least 1, not %d", c.Retry.MaxAttempts))
	}
	return result.ErrorOrNil()
}

// Flavors parses Deploy.RuntimeFlavors.
func (c *Config) Flavors() ([]deployer.RuntimeFlavor, error) {
	ret := make([]deployer.RuntimeFlavor, 0, len(c.Deploy.RuntimeFlavors))
	for _, name := range c.Deploy.RuntimeFlavors {
		f, err := deployer.ParseRuntimeFlavor(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, errors.Wrap(err, "deploy.runtimeFlavors")
		}
		ret = append(ret, f)
	}
	return ret, nil
}

// BaseURL returns the URL for the index'th concurrent deployment.
func (c *Config) BaseURL(index int) (string, error) {
	var port int
	if c.Deploy.BasePort == 0 {
		p, err := deployer.FreePort()
		if err != nil {
			return "", err
		}
		port = p
	} else {
		port = c.Deploy.BasePort + index
	}
	return "http://" + net.JoinHostPort(c.Deploy.Host, strconv.Itoa(port)) + "/", nil
}

func (c *Config) RetryPolicy() prober.RetryPolicy {
	return prober.RetryPolicy{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
		Multiplier:   c.Retry.Multiplier,
	}
}

// Launcher returns the deployer.Launcher described by Deploy.
func (c *Config) Launcher() deployer.Launcher {
	if len(c.Deploy.Command) > 0 {
		return deployer.CommandLauncher{Path: c.Deploy.Command[0], Args: c.Deploy.Command[1:]}
	}
	return deployer.GoLauncher{GoCommand: c.Deploy.GoCommand}
}
