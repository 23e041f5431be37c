package client

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Default configuration values.
const (
	// DefaultAPIURL is the address `scriptdex serve` listens on by default.
	DefaultAPIURL = "http://localhost:8080"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// EnvAPIURL is the environment variable name for the API URL.
	EnvAPIURL = "SCRIPTDEX_CLIENT_API_URL"

	// EnvTimeout is the environment variable name for the timeout duration.
	EnvTimeout = "SCRIPTDEX_CLIENT_TIMEOUT"
)

const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"
)

// Config holds the settings for connecting to a running scriptdex API server.
type Config struct {
	// APIURL is the base URL of the server, including the scheme.
	APIURL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a Config pointing at a local server.
func DefaultConfig() Config {
	return Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
	}
}

// LoadConfig starts from DefaultConfig and applies SCRIPTDEX_CLIENT_API_URL and
// SCRIPTDEX_CLIENT_TIMEOUT. A timeout variable that is set must parse as a positive
// duration.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg.APIURL = apiURL
	}

	if timeoutStr, ok := os.LookupEnv(EnvTimeout); ok {
		if timeoutStr == "" {
			return nil, fmt.Errorf("environment variable %s is set but empty: timeout cannot be empty", EnvTimeout)
		}
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration in %s: %w", EnvTimeout, err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("invalid timeout value in %s: timeout must be positive, got %v", EnvTimeout, timeout)
		}
		cfg.Timeout = timeout
	}

	return &cfg, nil
}

// Validate checks that APIURL is an http(s) URL and Timeout is positive.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("invalid configuration: API URL cannot be empty")
	}
	if !strings.HasPrefix(c.APIURL, schemeHTTP) && !strings.HasPrefix(c.APIURL, schemeHTTPS) {
		return fmt.Errorf("invalid configuration: API URL must have http:// or https:// scheme, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
