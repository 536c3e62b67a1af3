package servicedef

import "gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

// Environment variables passed to a deployed site process.
const (
	EnvURLs            = "SITE_URLS"
	EnvEnvironment     = "SITE_ENVIRONMENT"
	EnvTargetFramework = "SITE_TARGET_FRAMEWORK"
	EnvRuntimeFlavor   = "SITE_RUNTIME_FLAVOR"
	EnvRuntimeArch     = "SITE_RUNTIME_ARCH"
	EnvResourcesPath   = "SITE_RESOURCES_PATH"
)

// SiteCase describes one request to make against a deployed site and what to expect back.
//
// Cases can be loaded from a JSON file, so the optional fields use ldvalue types to
// distinguish "not specified" from a zero value.
type SiteCase struct {
	Name            string                 `json:"name"`
	Locale          string                 `json:"locale"`
	ExpectedHeading ldvalue.OptionalString `json:"expectedHeading,omitempty"`
	ExpectedBody    ldvalue.OptionalString `json:"expectedBody,omitempty"`
	MaxAttempts     ldvalue.OptionalInt    `json:"maxAttempts,omitempty"`
	Environment     ldvalue.OptionalString `json:"environment,omitempty"`
}
