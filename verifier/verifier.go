// Package verifier checks the body of a site's response.
package verifier

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// MaxBodyInError is how much of the actual body an AssertionError includes.
const MaxBodyInError = 2000

type Kind string

const (
	KindExact    Kind = "exact"
	KindContains Kind = "contains"
)

// AssertionError means the response did not match what was expected.
type AssertionError struct {
	Kind     Kind
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var what string
	if e.Kind == KindExact {
		what = fmt.Sprintf("expected response body to be exactly %q", e.Expected)
	} else {
		what = fmt.Sprintf("expected response body to contain %q", e.Expected)
	}
	return fmt.Sprintf("%s; actual body (%d bytes) was:\n%s", what, len(e.Actual), truncate(e.Actual))
}

func VerifyExact(actual, expected string) error {
	if actual != expected {
		return &AssertionError{Kind: KindExact, Expected: expected, Actual: actual}
	}
	return nil
}

func VerifyContains(actual, needle string) error {
	if strings.Index(actual, needle) < 0 {
		return &AssertionError{Kind: KindContains, Expected: needle, Actual: actual}
	}
	return nil
}

// Heading returns the markup of a top-level heading with the given text.
func Heading(text string) string {
	return "<h1>" + html.EscapeString(text) + "</h1>"
}

// VerifyHeading checks that the body contains a top-level heading with the given text.
func VerifyHeading(actual, text string) error {
	return VerifyContains(actual, Heading(text))
}

func RequireExact(t require.TestingT, actual, expected string) {
	requireNoError(t, VerifyExact(actual, expected))
}

func RequireContains(t require.TestingT, actual, needle string) {
	requireNoError(t, VerifyContains(actual, needle))
}

func RequireHeading(t require.TestingT, actual, text string) {
	requireNoError(t, VerifyHeading(actual, text))
}

func requireNoError(t require.TestingT, err error) {
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
}

func truncate(s string) string {
	if len(s) <= MaxBodyInError {
		return s
	}
	n := MaxBodyInError
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + fmt.Sprintf("... (%d more bytes)", len(s)-n)
}
