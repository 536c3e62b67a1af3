package sitetests

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/launchdarkly/sample-site-tests/servicedef"
)

// DefaultCases are the checks made against the sample site when no cases file is given.
func DefaultCases() []servicedef.SiteCase {
	return []servicedef.SiteCase{
		{
			Name:            "resources in folder return localized value",
			Locale:          "fr-FR",
			ExpectedHeading: ldvalue.NewOptionalString("Bonjour"),
		},
		{
			Name:            "parent culture is used when there is no specific resource",
			Locale:          "es-MX",
			ExpectedHeading: ldvalue.NewOptionalString("Hola"),
		},
		{
			Name:            "unknown culture falls back to default heading",
			Locale:          "xx-XX",
			ExpectedHeading: ldvalue.NewOptionalString("Hello"),
		},
		{
			Name:         "complete response",
			Locale:       "de-DE",
			ExpectedBody: ldvalue.NewOptionalString(servicedef.SamplePage("Hallo")),
		},
	}
}

// LoadCases reads a JSON array of cases from a file.
func LoadCases(path string) ([]servicedef.SiteCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []servicedef.SiteCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if err := validateCases(cases); err != nil {
		return nil, errors.Wrapf(err, "invalid cases in %s", path)
	}
	return cases, nil
}

func validateCases(cases []servicedef.SiteCase) error {
	var result *multierror.Error
	if len(cases) == 0 {
		result = multierror.Append(result, errors.New("no cases"))
	}
	names := make(map[string]bool)
	for i, c := range cases {
		if c.Name == "" {
			result = multierror.Append(result, fmt.Errorf("case %d has no name", i))
		} else if names[c.Name] {
			result = multierror.Append(result, fmt.Errorf("duplicate case name %q", c.Name))
		}
		names[c.Name] = true
		if c.Locale == "" {
			result = multierror.Append(result, fmt.Errorf("case %d has no locale", i))
		}
		if c.ExpectedHeading.IsDefined() && c.ExpectedBody.IsDefined() {
			result = multierror.Append(result, fmt.Errorf("case %d has both expectedHeading and expectedBody", i))
		}
		if c.MaxAttempts.IsDefined() && c.MaxAttempts.IntValue() < 1 {
			result = multierror.Append(result, fmt.Errorf("case %d has maxAttempts less than 1", i))
		}
	}
	return result.ErrorOrNil()
}
