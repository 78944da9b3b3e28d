// Package ciutil provides environment helpers for tests that need
// external services. Integration tests for the history backends and the
// event bus use it to find their service addresses and to skip cleanly
// when none are configured.
package ciutil
