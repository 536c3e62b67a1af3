// Package framework contains test runner infrastructure that is not specific to any
// particular kind of site under test.
//
// A test run is started with Run, which creates a root Context. Test functions receive a
// *Context, which is similar to Go's *testing.T: it accumulates failures, supports subtests
// with Run, and can be used with the testify assert and require packages. Anything a test
// acquires, such as a deployed site, should be released with Context.Defer so that it is
// cleaned up no matter how the test ends.
//
// Results are reported as they happen through a TestLogger, and each test's debug output
// is captured so it can be shown only for tests that failed.
package framework
