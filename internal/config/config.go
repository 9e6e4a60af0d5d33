package config

import (
	"errors"
	"fmt"
	"os"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const defaultControlAddr = "localhost:8990"
const defaultBridgeEndpoint = "ipc:///tmp/flagline-bridge"

type Config struct {
	databaseURL    string
	sentryDSN      string
	bridgeEndpoint string
	controlAddr    string
	env            environment
}

func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

// BridgeEndpoint is the zeromq endpoint of the page-context fetcher.
func (c *Config) BridgeEndpoint() string {
	return c.bridgeEndpoint
}

func (c *Config) ControlAddr() string {
	return c.controlAddr
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf("Config{env: %s, bridge: %s, control: %s, ...}", string(c.env), c.bridgeEndpoint, c.controlAddr)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("FLAGLINE_ENVIRONMENT")
	if !ok {
		return missingKey("FLAGLINE_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: FLAGLINE_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	sentryDSN := os.Getenv("SENTRY_DSN")
	bridgeEndpoint := os.Getenv("BRIDGE_ENDPOINT")
	controlAddr := os.Getenv("CONTROL_ADDR")

	if bridgeEndpoint == "" {
		bridgeEndpoint = defaultBridgeEndpoint
	}
	if controlAddr == "" {
		controlAddr = defaultControlAddr
	}

	if env == production || env == staging {
		if databaseURL == "" {
			return missingKey("DATABASE_URL")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		databaseURL:    databaseURL,
		sentryDSN:      sentryDSN,
		bridgeEndpoint: bridgeEndpoint,
		controlAddr:    controlAddr,
		env:            env,
	}, nil
}
