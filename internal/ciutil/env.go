package ciutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/phrazzld/podscribe/internal/redact"
)

// Common environment variable names used across the codebase.
const (
	// CI environment detection variables
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"

	// Integration test services
	EnvTestDatabaseURL   = "PODSCRIBE_TEST_DATABASE_URL"
	EnvTestRedisAddr     = "PODSCRIBE_TEST_REDIS_ADDR"
	EnvTestRedisPassword = "PODSCRIBE_TEST_REDIS_PASSWORD"
	EnvTestNATSURL       = "PODSCRIBE_TEST_NATS_URL"

	// Unprefixed fallbacks honored for the test database
	EnvDatabaseURL = "DATABASE_URL"
)

// IsCI returns true if the current environment is a CI environment.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// GetEnvWithFallbacks returns the value of the first non-empty environment
// variable from envVars, or defaultValue when none is set. Using anything
// but the first name is logged as legacy, with the value redacted.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			if i > 0 && logger != nil {
				logger.Warn("using legacy environment variable",
					"used_var", envVar,
					"preferred_var", envVars[0],
					"value", redact.String(val))
			}
			return val
		}
	}
	return defaultValue
}

// IntegrationEnv returns the first non-empty variable of envVars, skipping
// the test when none is set.
func IntegrationEnv(t testing.TB, service string, envVars ...string) string {
	t.Helper()

	val := GetEnvWithFallbacks(envVars, "", nil)
	if val == "" {
		if IsCI() {
			t.Logf("%s not configured in CI; set %s to run this test", service, envVars[0])
		}
		t.Skipf("%s not set, skipping %s integration test", envVars[0], service)
	}
	return val
}

// IntegrationDatabaseURL returns the PostgreSQL URL for integration tests or
// skips the test.
func IntegrationDatabaseURL(t testing.TB) string {
	t.Helper()
	return IntegrationEnv(t, "PostgreSQL", EnvTestDatabaseURL, EnvDatabaseURL)
}

// IntegrationRedisAddr returns the Redis address for integration tests or skips
// the test.
func IntegrationRedisAddr(t testing.TB) string {
	t.Helper()
	return IntegrationEnv(t, "Redis", EnvTestRedisAddr)
}

// IntegrationNATSURL returns the NATS URL for integration tests or skips the test.
func IntegrationNATSURL(t testing.TB) string {
	t.Helper()
	return IntegrationEnv(t, "NATS", EnvTestNATSURL)
}
