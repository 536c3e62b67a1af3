// Package sitetests contains the checks run against a deployed sample site, and the
// supporting API for writing them.
//
// Deploying, probing, and verifying a site is done by the lower-level harness package; the
// test context that collects failures and debug output is in the framework package.
package sitetests
