package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvString returns the value of key or fallback when it is unset or empty
func EnvString(env map[string]string, key string, fallback string) string {
	if env[key] != "" {
		return env[key]
	}

	return fallback
}

func EnvFloat(env map[string]string, key string, fallback float64) float64 {
	if val := env[key]; val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}

	return fallback
}

func EnvInt(env map[string]string, key string, fallback int) int {
	if val := env[key]; val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}

	return fallback
}

func EnvDuration(env map[string]string, key string, fallback time.Duration) time.Duration {
	if val := env[key]; val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}

	return fallback
}
