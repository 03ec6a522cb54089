package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables
type Environment struct {
	Environment EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath  string          `env:"CONFIG_PATH"`
}

// LoadEnv loads the environment variables, reading a .env file first if present
func LoadEnv() *Environment {
	_ = godotenv.Load()

	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.TrimSpace(envStr)
	envStr = strings.ToLower(envStr)
	envType := EnvironmentType(envStr)

	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment: envType,
		ConfigPath:  getEnv("CONFIG_PATH", "config.yaml"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
