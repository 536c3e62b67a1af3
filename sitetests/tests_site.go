package sitetests

import (
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/sample-site-tests/servicedef"
	"github.com/launchdarkly/sample-site-tests/verifier"
)

// DoSiteCase deploys the site, requests it with the case's locale, and checks the response.
// A case with no expectation only checks that the site responded.
func DoSiteCase(t *T, sc servicedef.SiteCase) {
	runner := t.Runner(sc.MaxAttempts.OrElse(0))
	params := t.Params(sc.Locale)
	if sc.Environment.IsDefined() {
		params.EnvironmentName = sc.Environment.StringValue()
	}

	var err error
	switch {
	case sc.ExpectedBody.IsDefined():
		err = runner.RunAndVerifyResponse(t.Context(), params, sc.ExpectedBody.StringValue())
	case sc.ExpectedHeading.IsDefined():
		err = runner.RunAndVerifyResponseHeading(t.Context(), params, verifier.Heading(sc.ExpectedHeading.StringValue()))
	default:
		var body string
		body, err = runner.RunAndGetResponse(t.Context(), params)
		t.Debug("Received %d bytes", len(body))
	}
	require.NoError(t, err)
}
