// Package shared holds helpers used across the demandboard packages.
//
// testutil provides a capturing slog handler and dataset fixtures for tests.
// It must not be imported from non-test code.
package shared
