package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/servicedef"
)

var casesUsage = fmt.Sprintf(
	`JSON file of cases to run instead of the built-in ones, such as [{"name": "french", "locale": "fr-FR", "expectedHeading": "Bonjour"}]; the locale is sent in the %s cookie`,
	servicedef.DefaultCookieName)

type commandParams struct {
	configPath string
	casesPath  string
	filters    framework.RegexFilters
	debug      bool
	debugAll   bool
}

func (c *commandParams) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&c.configPath, "config", "", "config file (default: ./sitetests.yaml if present)")
	fs.StringVar(&c.casesPath, "cases", "", casesUsage)
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
}
