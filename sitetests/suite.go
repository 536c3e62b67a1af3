package sitetests

import (
	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/servicedef"
)

// RunTestSuite runs every case once for each configured runtime flavor. Each flavor gets
// its own port. The error is only for a configuration that prevents running any tests.
func RunTestSuite(
	env Environment,
	cases []servicedef.SiteCase,
	filter framework.Filter,
	testLogger framework.TestLogger,
) (framework.Results, error) {
	flavors, err := env.Config.Flavors()
	if err != nil {
		return framework.Results{}, err
	}
	baseURLs := make([]string, len(flavors))
	for i := range flavors {
		if baseURLs[i], err = env.Config.BaseURL(i); err != nil {
			return framework.Results{}, err
		}
	}

	return framework.Run(filter, testLogger, nil, func(c *framework.Context) {
		for i, flavor := range flavors {
			t := &T{context: c, env: &env, flavor: flavor, baseURL: baseURLs[i]}
			t.Run(flavor.String(), func(t *T) {
				for _, sc := range cases {
					sc := sc
					t.Run(sc.Name, func(t *T) { DoSiteCase(t, sc) })
				}
			})
		}
	}), nil
}
