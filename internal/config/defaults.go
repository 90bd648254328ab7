package config

import "time"

const (
	defaultPort         = 8080
	defaultOrganization = "sandbox-org"
	defaultStoreDriver  = StoreBadger
	defaultServiceName  = "onfleet-workers"
)

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "test_db",
}

var defaultClient = Client{
	BaseURL: "https://onfleet.com/api/v2",
	Timeout: 30 * time.Second,
	Rate:    20,
	Burst:   20,
}

var defaultRetry = Retry{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

var defaultBreaker = Breaker{
	MaxRequests:      1,
	Interval:         time.Minute,
	Timeout:          30 * time.Second,
	FailureThreshold: 5,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       20,
	Burst:      40,
	TTL:        5 * time.Minute,
	MaxBuckets: 10000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultClient returns the default platform client settings.
func DefaultClient() Client {
	return defaultClient
}

// DefaultRetry returns the default retry policy.
func DefaultRetry() Retry {
	return defaultRetry
}

// DefaultBreaker returns the default circuit breaker settings.
func DefaultBreaker() Breaker {
	return defaultBreaker
}

// DefaultRateLimit returns the default inbound rate limit.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}
