package deployer

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/launchdarkly/sample-site-tests/servicedef"
)

const defaultStartupTimeout = time.Second * 30

// ServerKind is the kind of server hosting the site. Only one is supported.
type ServerKind int

const ServerKindHTTP ServerKind = iota

func (k ServerKind) String() string {
	if k == ServerKindHTTP {
		return "http"
	}
	return fmt.Sprintf("ServerKind(%d)", int(k))
}

// RuntimeFlavor selects which execution environment the site is built for. It does not
// change how the harness deploys the site; it only selects a default target framework and
// is passed to the site process.
type RuntimeFlavor int

const (
	RuntimeFlavorModern RuntimeFlavor = iota
	RuntimeFlavorLegacy
)

func (f RuntimeFlavor) String() string {
	switch f {
	case RuntimeFlavorModern:
		return "modern"
	case RuntimeFlavorLegacy:
		return "legacy"
	}
	return fmt.Sprintf("RuntimeFlavor(%d)", int(f))
}

// ParseRuntimeFlavor accepts the names returned by RuntimeFlavor.String.
func ParseRuntimeFlavor(s string) (RuntimeFlavor, error) {
	switch s {
	case "", "modern":
		return RuntimeFlavorModern, nil
	case "legacy":
		return RuntimeFlavorLegacy, nil
	}
	return 0, fmt.Errorf("unknown runtime flavor %q", s)
}

// DefaultTargetFramework returns the target framework moniker used when none is set.
func (f RuntimeFlavor) DefaultTargetFramework() string {
	if f == RuntimeFlavorLegacy {
		return "net451"
	}
	return "netcoreapp1.1"
}

type RuntimeArchitecture int

const ArchitectureX64 RuntimeArchitecture = iota

func (a RuntimeArchitecture) String() string {
	if a == ArchitectureX64 {
		return "x64"
	}
	return fmt.Sprintf("RuntimeArchitecture(%d)", int(a))
}

// DeploymentParameters describes one deployment. It is passed by value and is not modified
// by the deployer.
type DeploymentParameters struct {
	// ApplicationPath is the project file of the site, or its directory.
	ApplicationPath     string
	ServerKind          ServerKind
	RuntimeFlavor       RuntimeFlavor
	RuntimeArchitecture RuntimeArchitecture
	// BaseURL is where the site should listen, such as "http://localhost:5081/".
	BaseURL         string
	EnvironmentName string
	// TargetFramework defaults to RuntimeFlavor.DefaultTargetFramework().
	TargetFramework  string
	WorkingDirectory string
	// StartupTimeout bounds how long to wait for the site to accept requests. Defaults to 30s.
	StartupTimeout time.Duration
	// ExtraEnv is added to the site's environment.
	ExtraEnv map[string]string
}

func (p DeploymentParameters) withDefaults() DeploymentParameters {
	if p.TargetFramework == "" {
		p.TargetFramework = p.RuntimeFlavor.DefaultTargetFramework()
	}
	if p.StartupTimeout <= 0 {
		p.StartupTimeout = defaultStartupTimeout
	}
	return p
}

func (p DeploymentParameters) validate() error {
	if p.ServerKind != ServerKindHTTP {
		return fmt.Errorf("unsupported server kind %s", p.ServerKind)
	}
	if p.RuntimeFlavor != RuntimeFlavorModern && p.RuntimeFlavor != RuntimeFlavorLegacy {
		return fmt.Errorf("unsupported runtime flavor %s", p.RuntimeFlavor)
	}
	if p.RuntimeArchitecture != ArchitectureX64 {
		return fmt.Errorf("unsupported runtime architecture %s", p.RuntimeArchitecture)
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", p.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL %q must be an absolute http or https URL", p.BaseURL)
	}
	return nil
}

// environment returns the variables, in "name=value" form, that tell the site process how
// to run.
func (p DeploymentParameters) environment() []string {
	env := []string{
		servicedef.EnvURLs + "=" + p.BaseURL,
		servicedef.EnvEnvironment + "=" + p.EnvironmentName,
		servicedef.EnvTargetFramework + "=" + p.TargetFramework,
		servicedef.EnvRuntimeFlavor + "=" + p.RuntimeFlavor.String(),
		servicedef.EnvRuntimeArch + "=" + p.RuntimeArchitecture.String(),
	}
	names := make([]string, 0, len(p.ExtraEnv))
	for name := range p.ExtraEnv {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, name+"="+p.ExtraEnv[name])
	}
	return env
}
