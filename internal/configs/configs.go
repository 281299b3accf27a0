/*
Package configs is responsible for loading and parsing the application's configuration.

It configures server parameters from operating system environment variables:
the running environment, port, CORS allowed origins, and the per-IP rate limit
applied to WebSocket connection attempts.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// WebSocket connection throttling (per client IP).
	ConnectRate  float64
	ConnectBurst int
}

// LoadConfig reads and parses the application configuration from environment
// variables, applying development defaults and validating ranges. It returns
// a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3000"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	if cfg.Environment != "development" && len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS environment variable is required in %s environment", cfg.Environment)
	}

	// --- WebSocket Throttling ---
	// ConnectRate
	rateStr := os.Getenv("WS_CONNECT_RATE")
	if rateStr == "" {
		rateStr = "0.2"
	}
	connectRate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil || connectRate <= 0 {
		return nil, fmt.Errorf("invalid WS_CONNECT_RATE environment variable: %q", rateStr)
	}
	cfg.ConnectRate = connectRate

	// ConnectBurst
	burstStr := os.Getenv("WS_CONNECT_BURST")
	if burstStr == "" {
		burstStr = "5"
	}
	connectBurst, err := strconv.Atoi(burstStr)
	if err != nil || connectBurst < 1 {
		return nil, fmt.Errorf("invalid WS_CONNECT_BURST environment variable: %q", burstStr)
	}
	cfg.ConnectBurst = connectBurst

	return cfg, nil
}
