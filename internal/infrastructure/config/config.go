package config

import "github.com/kelseyhightower/envconfig"

// Database holds Turso database configuration.
type Database struct {
	URL       string `envconfig:"TURSO_DATABASE_URL" required:"true"`
	AuthToken string `envconfig:"TURSO_AUTH_TOKEN"`
}

// Server holds configuration for the HTTP API server.
type Server struct {
	Database Database
	Port     int `envconfig:"ABTEST_PORT" default:"8080"`
}

// CLI holds configuration for the command line tools.
type CLI struct {
	Database Database
}

// LoadServer loads server configuration from environment variables.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadCLI loads CLI configuration from environment variables.
func LoadCLI() (*CLI, error) {
	var cfg CLI
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, err
	}
	return &cfg, nil
}
